package imports

// rows.go turns raw data rows into typed, validated rows.
//
// A row must pass every field validator to be accepted. Failures are
// collected per row rather than short-circuited so the uploader sees every
// problem in one pass. Rejected rows never reach the reconciliation engine.

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is a fully validated and normalized data row, ready for
// reconciliation. String-typed flags from the source have already been
// converted to native booleans.
type Row struct {
	Line int // 1-based line in the uploaded file, header is line 1

	SchoolName   string
	City         string
	Grade        int
	Division     string
	Group        bool // team project flag
	TeacherFirst string
	TeacherLast  string
	TeacherEmail string
	EntryID      int
	Title        string

	// Optional columns; present only when the upload carries them.
	Zip        string
	Gender     string
	Release    bool
	HasRelease bool
}

// RejectedRow records a data row that failed validation, with every reason.
type RejectedRow struct {
	Line    int      `json:"line"`
	Reasons []string `json:"reasons"`
	Data    []string `json:"data"`
}

// RowOutcome is the result of normalizing all data rows of one upload.
type RowOutcome struct {
	Accepted []Row
	Rejected []RejectedRow
}

// ProcessRows validates dataRows against the resolved columns. Rows with
// zero cells are dropped silently; rows whose cells are merely blank go
// through validation and fail it. dataRows excludes the header, so row i is
// file line i+2.
func ProcessRows(cols ColumnMap, dataRows [][]string) RowOutcome {
	var out RowOutcome
	for i, raw := range dataRows {
		if len(raw) == 0 {
			continue
		}
		line := i + 2

		row, reasons := normalizeRow(cols, raw, line)
		if len(reasons) > 0 {
			out.Rejected = append(out.Rejected, RejectedRow{
				Line:    line,
				Reasons: reasons,
				Data:    raw,
			})
			continue
		}
		out.Accepted = append(out.Accepted, row)
	}
	return out
}

// normalizeRow applies every validator to its logical field and builds the
// typed row. A panic while reading cells is downgraded to a parse-error
// reason so one malformed row cannot abort the run.
func normalizeRow(cols ColumnMap, raw []string, line int) (row Row, reasons []string) {
	defer func() {
		if r := recover(); r != nil {
			reasons = append(reasons, fmt.Sprintf("parse error: %v", r))
		}
	}()

	row.Line = line

	cell := func(field string) string {
		pos, ok := cols[field]
		if !ok || pos < 0 || pos >= len(raw) {
			return ""
		}
		return strings.TrimSpace(raw[pos])
	}
	fail := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	// Validators run in the fixed pipeline order. Optional fields are only
	// checked when their column was resolved.
	city := cell(FieldCity)
	if !ValidCapitalization(city, " ") {
		fail("city %q is not properly capitalized", city)
	}
	first := cell(FieldTeacherFirst)
	if !ValidCapitalization(first, " ") {
		fail("teacher first name %q is not properly capitalized", first)
	}
	last := cell(FieldTeacherLast)
	if !ValidCapitalization(last, " ") {
		fail("teacher last name %q is not properly capitalized", last)
	}
	grade := cell(FieldGrade)
	if !ValidGrade(grade) {
		fail("grade %q must be a number between 1 and 12", grade)
	}
	zip, hasZip := "", false
	if _, ok := cols[FieldZip]; ok {
		hasZip = true
		zip = cell(FieldZip)
		if !ValidZipcode(zip) {
			fail("zip %q must be 5 digits or ZIP+4", zip)
		}
	}
	division := cell(FieldDivision)
	if !ValidDivision(division) {
		fail("division %q must be Junior, Senior, or Elementary", division)
	}
	team := cell(FieldTeamProject)
	if !ValidTeam(team) {
		fail("team project %q must be True or False", team)
	}
	gender := ""
	if _, ok := cols[FieldGender]; ok {
		gender = cell(FieldGender)
		if !ValidGender(gender) {
			fail("gender %q is not a recognized code", gender)
		}
	}
	release, hasRelease := "", false
	if _, ok := cols[FieldRelease]; ok {
		hasRelease = true
		release = cell(FieldRelease)
		if !ValidRelease(release) {
			fail("release %q must be Yes or No", release)
		}
	}
	email := cell(FieldTeacherEmail)
	if !ValidEmail(email) {
		fail("teacher email %q is not a valid address", email)
	}

	entryID, err := strconv.Atoi(cell(FieldProjectID))
	if err != nil {
		fail("project id %q is not an integer", cell(FieldProjectID))
	}

	if len(reasons) > 0 {
		return Row{}, reasons
	}

	// Fractional grades pass validation; only the integer part is stored.
	gradeNum, _ := strconv.ParseFloat(grade, 64)

	row = Row{
		Line:         line,
		SchoolName:   cell(FieldSchoolName),
		City:         city,
		Grade:        int(gradeNum),
		Division:     division,
		Group:        team == "True",
		TeacherFirst: first,
		TeacherLast:  last,
		TeacherEmail: email,
		EntryID:      entryID,
		Title:        cell(FieldTitle),
		Gender:       gender,
		Release:      release == "Yes",
		HasRelease:   hasRelease,
	}
	if hasZip {
		row.Zip = zip
	}
	return row, nil
}

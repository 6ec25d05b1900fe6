// Package imports implements the spreadsheet ingestion pipeline for yearly
// fair data: header resolution, row validation, and reconciliation of
// schools, teachers, projects, students, and participation facts.
package imports

import (
	"strings"
	"unicode"
)

// Logical field names. A header label resolves to one of these after
// normalization (lowercased, all whitespace stripped), so "Teacher First",
// "teacherfirst" and " TEACHER FIRST " are the same column.
const (
	FieldSchoolName   = "schoolname"
	FieldCity         = "city"
	FieldGrade        = "grade"
	FieldDivision     = "division"
	FieldTeamProject  = "teamproject"
	FieldTeacherFirst = "teacherfirst"
	FieldTeacherLast  = "teacherlast"
	FieldTeacherEmail = "teacheremail"
	FieldProjectID    = "projectid"
	FieldTitle        = "title"
	FieldZip          = "zip"
	FieldGender       = "gender"
	FieldRelease      = "release"
)

// RequiredFields lists the logical fields that must be present in the header
// row. If any is missing the whole file is rejected before row processing.
var RequiredFields = []string{
	FieldSchoolName,
	FieldCity,
	FieldGrade,
	FieldDivision,
	FieldTeamProject,
	FieldTeacherFirst,
	FieldTeacherLast,
	FieldTeacherEmail,
	FieldProjectID,
	FieldTitle,
}

// OptionalFields are resolved when present and validated only then.
var OptionalFields = []string{
	FieldZip,
	FieldGender,
	FieldRelease,
}

// ColumnMap maps logical field names to their column index in the data rows.
type ColumnMap map[string]int

// NormalizeLabel lowercases a header label and strips all whitespace,
// including interior runs.
func NormalizeLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

var knownFields = func() map[string]bool {
	m := make(map[string]bool, len(RequiredFields)+len(OptionalFields))
	for _, f := range RequiredFields {
		m[f] = true
	}
	for _, f := range OptionalFields {
		m[f] = true
	}
	return m
}()

// Resolve maps a header row to logical field positions and reports which
// required fields have no matching column. Unknown columns are ignored.
// When two columns normalize to the same logical field the later one wins.
func Resolve(header []string) (ColumnMap, []string) {
	cols := make(ColumnMap, len(RequiredFields))
	for i, label := range header {
		key := NormalizeLabel(label)
		if knownFields[key] {
			cols[key] = i
		}
	}

	var missing []string
	for _, f := range RequiredFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	return cols, missing
}

package imports

// reconcile.go drives the per-row find-or-create flow against the store.
//
// Rows are processed strictly in order, one at a time. The find-or-create
// steps are read-modify-write against shared natural keys, so two rows
// naming the same not-yet-created school must never run concurrently.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Repository lookups when no entity matches the
// natural key.
var ErrNotFound = errors.New("not found")

// School is identified by name (optionally name+town, see Options).
type School struct {
	ID   int64
	Name string
	Town string
}

// Teacher is identified by the (first, last, email) triple.
type Teacher struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
}

// Project is identified by the registration system's entry id.
type Project struct {
	ID        int64
	SchoolID  int64
	TeacherID int64
	EntryID   int
	Title     string
	Division  string
	Category  string
	Year      int
	Group     bool
}

// Student links a participant to a project and school for one year's fair.
type Student struct {
	ID        int64
	ProjectID int64
	SchoolID  int64
	Grade     int
	Gender    string
}

// Repository is the persistence surface the engine reconciles against.
// Lookups return ErrNotFound when the natural key has no match; creates
// return the stored entity with its id populated.
type Repository interface {
	FindSchoolByName(ctx context.Context, name string) (School, error)
	FindSchoolByNameAndTown(ctx context.Context, name, town string) (School, error)
	CreateSchool(ctx context.Context, name, town string) (School, error)

	FindTeacher(ctx context.Context, first, last, email string) (Teacher, error)
	CreateTeacher(ctx context.Context, first, last, email string) (Teacher, error)

	FindProjectByEntryID(ctx context.Context, entryID int) (Project, error)
	CreateProject(ctx context.Context, p Project) (Project, error)

	StudentExists(ctx context.Context, projectID, schoolID int64) (bool, error)
	InsertStudent(ctx context.Context, s Student) error

	TeacherParticipationExists(ctx context.Context, year int, teacherID, schoolID int64) (bool, error)
	RecordTeacherParticipation(ctx context.Context, year int, teacherID, schoolID int64) error

	SchoolParticipationExists(ctx context.Context, year int, schoolID int64) (bool, error)
	RecordSchoolParticipation(ctx context.Context, year int, schoolID int64) error
}

// Options control the engine's legacy-compatibility behavior.
type Options struct {
	// SchoolKeyIncludesTown widens the school natural key from name to
	// (name, town). Off by default to match the historical importer, which
	// merges same-named schools across towns.
	SchoolKeyIncludesTown bool

	// OneStudentPerProject keeps the historical student identity of
	// (project, school), collapsing multiple students on a team project
	// into one row. Set false to insert a student per accepted row.
	OneStudentPerProject bool

	// CategoryPlaceholder is stored on new projects until the source data
	// grows a category column.
	CategoryPlaceholder string
}

// DefaultCategoryPlaceholder is used when Options leaves the placeholder
// empty.
const DefaultCategoryPlaceholder = "Uncategorized"

// RowFailure describes a row whose persistence steps did not all complete.
type RowFailure struct {
	Line   int    `json:"line"`
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// Summary is the result of one reconciliation run.
type Summary struct {
	RunID         string
	Year          int
	RowsProcessed int
	Failures      []RowFailure
	Duration      time.Duration
}

// Engine reconciles accepted rows into the store.
type Engine struct {
	repo Repository
	opts Options
}

// NewEngine creates an engine over the given repository.
func NewEngine(repo Repository, opts Options) *Engine {
	if opts.CategoryPlaceholder == "" {
		opts.CategoryPlaceholder = DefaultCategoryPlaceholder
	}
	return &Engine{repo: repo, opts: opts}
}

// Run processes the accepted rows for one target year, in row order. A row
// whose steps fail is logged and skipped; the run continues. Cancelling the
// context stops the run before the next row, never mid-row.
func (e *Engine) Run(ctx context.Context, year int, rows []Row) Summary {
	start := time.Now()
	sum := Summary{
		RunID: uuid.New().String(),
		Year:  year,
	}
	logger := slog.Default().With("run_id", sum.RunID, "year", year)
	importRuns.Inc()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			logger.Warn("import run cancelled", "completed_rows", sum.RowsProcessed)
			break
		}

		if step, err := e.reconcileRow(ctx, year, row); err != nil {
			logger.Error("row failed",
				"line", row.Line,
				"step", step,
				"error", err,
			)
			sum.Failures = append(sum.Failures, RowFailure{
				Line:   row.Line,
				Step:   step,
				Reason: err.Error(),
			})
			rowsFailed.Inc()
			continue
		}
		sum.RowsProcessed++
		rowsProcessed.Inc()
	}

	sum.Duration = time.Since(start)
	logger.Info("import run finished",
		"rows_processed", sum.RowsProcessed,
		"rows_failed", len(sum.Failures),
		"duration_ms", sum.Duration.Milliseconds(),
	)
	return sum
}

// reconcileRow performs the six persistence steps for one row. It returns
// the name of the step that failed, for logging and the run summary.
func (e *Engine) reconcileRow(ctx context.Context, year int, row Row) (string, error) {
	school, err := e.resolveSchool(ctx, row)
	if err != nil {
		return "school", err
	}

	teacher, err := e.resolveTeacher(ctx, row)
	if err != nil {
		return "teacher", err
	}

	project, err := e.resolveProject(ctx, year, row, school, teacher)
	if err != nil {
		return "project", err
	}

	if err := e.insertStudent(ctx, row, project, school); err != nil {
		return "student", err
	}

	if err := e.recordTeacherParticipation(ctx, year, teacher, school); err != nil {
		return "teacher participation", err
	}

	if err := e.recordSchoolParticipation(ctx, year, school); err != nil {
		return "school participation", err
	}

	return "", nil
}

func (e *Engine) resolveSchool(ctx context.Context, row Row) (School, error) {
	var school School
	var err error
	if e.opts.SchoolKeyIncludesTown {
		school, err = e.repo.FindSchoolByNameAndTown(ctx, row.SchoolName, row.City)
	} else {
		school, err = e.repo.FindSchoolByName(ctx, row.SchoolName)
	}
	if errors.Is(err, ErrNotFound) {
		return e.repo.CreateSchool(ctx, row.SchoolName, row.City)
	}
	if err != nil {
		return School{}, fmt.Errorf("find school %q: %w", row.SchoolName, err)
	}
	return school, nil
}

func (e *Engine) resolveTeacher(ctx context.Context, row Row) (Teacher, error) {
	teacher, err := e.repo.FindTeacher(ctx, row.TeacherFirst, row.TeacherLast, row.TeacherEmail)
	if errors.Is(err, ErrNotFound) {
		return e.repo.CreateTeacher(ctx, row.TeacherFirst, row.TeacherLast, row.TeacherEmail)
	}
	if err != nil {
		return Teacher{}, fmt.Errorf("find teacher %q: %w", row.TeacherEmail, err)
	}
	return teacher, nil
}

func (e *Engine) resolveProject(ctx context.Context, year int, row Row, school School, teacher Teacher) (Project, error) {
	project, err := e.repo.FindProjectByEntryID(ctx, row.EntryID)
	if errors.Is(err, ErrNotFound) {
		return e.repo.CreateProject(ctx, Project{
			SchoolID:  school.ID,
			TeacherID: teacher.ID,
			EntryID:   row.EntryID,
			Title:     row.Title,
			Division:  row.Division,
			Category:  e.opts.CategoryPlaceholder,
			Year:      year,
			Group:     row.Group,
		})
	}
	if err != nil {
		return Project{}, fmt.Errorf("find project %d: %w", row.EntryID, err)
	}
	return project, nil
}

func (e *Engine) insertStudent(ctx context.Context, row Row, project Project, school School) error {
	if e.opts.OneStudentPerProject {
		exists, err := e.repo.StudentExists(ctx, project.ID, school.ID)
		if err != nil {
			return fmt.Errorf("check student: %w", err)
		}
		if exists {
			return nil
		}
	}
	return e.repo.InsertStudent(ctx, Student{
		ProjectID: project.ID,
		SchoolID:  school.ID,
		Grade:     row.Grade,
		Gender:    row.Gender,
	})
}

func (e *Engine) recordTeacherParticipation(ctx context.Context, year int, teacher Teacher, school School) error {
	exists, err := e.repo.TeacherParticipationExists(ctx, year, teacher.ID, school.ID)
	if err != nil {
		return fmt.Errorf("check teacher participation: %w", err)
	}
	if exists {
		return nil
	}
	return e.repo.RecordTeacherParticipation(ctx, year, teacher.ID, school.ID)
}

func (e *Engine) recordSchoolParticipation(ctx context.Context, year int, school School) error {
	exists, err := e.repo.SchoolParticipationExists(ctx, year, school.ID)
	if err != nil {
		return fmt.Errorf("check school participation: %w", err)
	}
	if exists {
		return nil
	}
	return e.repo.RecordSchoolParticipation(ctx, year, school.ID)
}

package imports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stemloop/fairtrack/internal/imports"
	"github.com/stemloop/fairtrack/internal/store"
)

func sampleRow(line int) imports.Row {
	return imports.Row{
		Line:         line,
		SchoolName:   "Lincoln High",
		City:         "Boston",
		Grade:        10,
		Division:     "Senior",
		Group:        false,
		TeacherFirst: "Jane",
		TeacherLast:  "Doe",
		TeacherEmail: "jane.doe@school.org",
		EntryID:      4821,
		Title:        "Solar Still Efficiency",
	}
}

func TestEngineCreatesAllEntities(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{OneStudentPerProject: true})

	summary := engine.Run(context.Background(), 2024, []imports.Row{sampleRow(2)})

	if summary.RowsProcessed != 1 {
		t.Fatalf("RowsProcessed = %d, failures: %+v", summary.RowsProcessed, summary.Failures)
	}
	if summary.RunID == "" {
		t.Error("RunID is empty")
	}
	if summary.Year != 2024 {
		t.Errorf("Year = %d", summary.Year)
	}

	if len(mem.Schools) != 1 || mem.Schools[0].Name != "Lincoln High" || mem.Schools[0].Town != "Boston" {
		t.Errorf("Schools = %+v", mem.Schools)
	}
	if len(mem.Teachers) != 1 || mem.Teachers[0].Email != "jane.doe@school.org" {
		t.Errorf("Teachers = %+v", mem.Teachers)
	}
	if len(mem.Projects) != 1 {
		t.Fatalf("Projects = %+v", mem.Projects)
	}
	p := mem.Projects[0]
	if p.EntryID != 4821 || p.Year != 2024 || p.Category != imports.DefaultCategoryPlaceholder {
		t.Errorf("Project = %+v", p)
	}
	if p.SchoolID != mem.Schools[0].ID || p.TeacherID != mem.Teachers[0].ID {
		t.Errorf("Project links = %+v", p)
	}
	if len(mem.Students) != 1 || mem.Students[0].Grade != 10 {
		t.Errorf("Students = %+v", mem.Students)
	}
	if len(mem.TeacherParticipation) != 1 || len(mem.SchoolParticipation) != 1 {
		t.Errorf("participation = %+v / %+v", mem.TeacherParticipation, mem.SchoolParticipation)
	}
}

func TestEngineIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{OneStudentPerProject: true})

	rows := []imports.Row{sampleRow(2)}
	engine.Run(context.Background(), 2024, rows)
	summary := engine.Run(context.Background(), 2024, rows)

	if summary.RowsProcessed != 1 {
		t.Fatalf("second run failed: %+v", summary.Failures)
	}
	if len(mem.Schools) != 1 || len(mem.Teachers) != 1 || len(mem.Projects) != 1 ||
		len(mem.Students) != 1 || len(mem.TeacherParticipation) != 1 || len(mem.SchoolParticipation) != 1 {
		t.Errorf("re-run created duplicates: %d schools, %d teachers, %d projects, %d students",
			len(mem.Schools), len(mem.Teachers), len(mem.Projects), len(mem.Students))
	}
}

func TestEngineReusesSchoolAndTeacher(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{OneStudentPerProject: true})

	second := sampleRow(3)
	second.EntryID = 4822
	second.Title = "Wind Tunnel Design"

	summary := engine.Run(context.Background(), 2024, []imports.Row{sampleRow(2), second})

	if summary.RowsProcessed != 2 {
		t.Fatalf("failures: %+v", summary.Failures)
	}
	if len(mem.Schools) != 1 || len(mem.Teachers) != 1 {
		t.Errorf("expected one school and one teacher, got %d / %d", len(mem.Schools), len(mem.Teachers))
	}
	if len(mem.Projects) != 2 {
		t.Errorf("Projects = %d, want 2", len(mem.Projects))
	}
	// One participation fact per (teacher, school) and per school, not per row.
	if len(mem.TeacherParticipation) != 1 || len(mem.SchoolParticipation) != 1 {
		t.Errorf("participation = %d / %d, want 1 / 1",
			len(mem.TeacherParticipation), len(mem.SchoolParticipation))
	}
}

func TestEngineSchoolKeyByNameMergesTowns(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{OneStudentPerProject: true})

	second := sampleRow(3)
	second.City = "Cambridge"
	second.EntryID = 4822

	engine.Run(context.Background(), 2024, []imports.Row{sampleRow(2), second})

	// With the default name-only key, the Cambridge row lands on the
	// existing Boston record.
	if len(mem.Schools) != 1 {
		t.Fatalf("Schools = %+v, want 1", mem.Schools)
	}
	if mem.Schools[0].Town != "Boston" {
		t.Errorf("Town = %q, want the first row's town", mem.Schools[0].Town)
	}
}

func TestEngineSchoolKeyIncludesTown(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{
		SchoolKeyIncludesTown: true,
		OneStudentPerProject:  true,
	})

	second := sampleRow(3)
	second.City = "Cambridge"
	second.EntryID = 4822

	engine.Run(context.Background(), 2024, []imports.Row{sampleRow(2), second})

	if len(mem.Schools) != 2 {
		t.Fatalf("Schools = %+v, want 2", mem.Schools)
	}
}

func TestEngineOneStudentPerProject(t *testing.T) {
	teammate := sampleRow(3)
	teammate.Group = true
	first := sampleRow(2)
	first.Group = true

	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{OneStudentPerProject: true})
	engine.Run(context.Background(), 2024, []imports.Row{first, teammate})

	if len(mem.Students) != 1 {
		t.Errorf("Students = %d, want 1 with the collapsed identity", len(mem.Students))
	}

	mem = store.NewMemory()
	engine = imports.NewEngine(mem, imports.Options{OneStudentPerProject: false})
	engine.Run(context.Background(), 2024, []imports.Row{first, teammate})

	if len(mem.Students) != 2 {
		t.Errorf("Students = %d, want 2 with per-row identity", len(mem.Students))
	}
}

func TestEngineCategoryPlaceholder(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{
		OneStudentPerProject: true,
		CategoryPlaceholder:  "Pending Review",
	})
	engine.Run(context.Background(), 2024, []imports.Row{sampleRow(2)})

	if mem.Projects[0].Category != "Pending Review" {
		t.Errorf("Category = %q", mem.Projects[0].Category)
	}
}

// failingRepo wraps the memory store and fails one step by name.
type failingRepo struct {
	*store.Memory
	failCreateProject bool
}

func (f *failingRepo) CreateProject(ctx context.Context, p imports.Project) (imports.Project, error) {
	if f.failCreateProject {
		return imports.Project{}, errors.New("disk full")
	}
	return f.Memory.CreateProject(ctx, p)
}

func TestEngineContinuesPastFailedRow(t *testing.T) {
	repo := &failingRepo{Memory: store.NewMemory(), failCreateProject: true}
	engine := imports.NewEngine(repo, imports.Options{OneStudentPerProject: true})

	second := sampleRow(3)
	second.EntryID = 4822

	summary := engine.Run(context.Background(), 2024, []imports.Row{sampleRow(2), second})

	if summary.RowsProcessed != 0 {
		t.Errorf("RowsProcessed = %d, want 0", summary.RowsProcessed)
	}
	if len(summary.Failures) != 2 {
		t.Fatalf("Failures = %+v, want 2", summary.Failures)
	}
	if summary.Failures[0].Line != 2 || summary.Failures[0].Step != "project" {
		t.Errorf("first failure = %+v", summary.Failures[0])
	}
	// Earlier steps of a failed row still persisted.
	if len(repo.Schools) != 1 || len(repo.Teachers) != 1 {
		t.Errorf("schools = %d, teachers = %d", len(repo.Schools), len(repo.Teachers))
	}
}

func TestEngineStopsOnCancelledContext(t *testing.T) {
	mem := store.NewMemory()
	engine := imports.NewEngine(mem, imports.Options{OneStudentPerProject: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := engine.Run(ctx, 2024, []imports.Row{sampleRow(2)})
	if summary.RowsProcessed != 0 {
		t.Errorf("RowsProcessed = %d, want 0", summary.RowsProcessed)
	}
	if len(mem.Schools) != 0 {
		t.Errorf("cancelled run wrote %d school(s)", len(mem.Schools))
	}
}

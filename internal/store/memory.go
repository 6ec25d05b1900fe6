package store

import (
	"context"
	"sync"

	"github.com/stemloop/fairtrack/internal/imports"
)

// Memory is an in-memory Repository used by importctl dry runs and tests.
// It mirrors the natural-key semantics of the PostgreSQL store.
type Memory struct {
	mu sync.Mutex

	nextID   int64
	Schools  []imports.School
	Teachers []imports.Teacher
	Projects []imports.Project
	Students []imports.Student

	TeacherParticipation []TeacherParticipation
	SchoolParticipation  []SchoolParticipation
}

// TeacherParticipation is a (year, teacher, school) fact row.
type TeacherParticipation struct {
	Year      int
	TeacherID int64
	SchoolID  int64
}

// SchoolParticipation is a (year, school) fact row.
type SchoolParticipation struct {
	Year     int
	SchoolID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) FindSchoolByName(_ context.Context, name string) (imports.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Schools {
		if s.Name == name {
			return s, nil
		}
	}
	return imports.School{}, imports.ErrNotFound
}

func (m *Memory) FindSchoolByNameAndTown(_ context.Context, name, town string) (imports.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Schools {
		if s.Name == name && s.Town == town {
			return s, nil
		}
	}
	return imports.School{}, imports.ErrNotFound
}

func (m *Memory) CreateSchool(_ context.Context, name, town string) (imports.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := imports.School{ID: m.id(), Name: name, Town: town}
	m.Schools = append(m.Schools, s)
	return s, nil
}

func (m *Memory) FindTeacher(_ context.Context, first, last, email string) (imports.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.Teachers {
		if t.FirstName == first && t.LastName == last && t.Email == email {
			return t, nil
		}
	}
	return imports.Teacher{}, imports.ErrNotFound
}

func (m *Memory) CreateTeacher(_ context.Context, first, last, email string) (imports.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := imports.Teacher{ID: m.id(), FirstName: first, LastName: last, Email: email}
	m.Teachers = append(m.Teachers, t)
	return t, nil
}

func (m *Memory) FindProjectByEntryID(_ context.Context, entryID int) (imports.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.Projects {
		if p.EntryID == entryID {
			return p, nil
		}
	}
	return imports.Project{}, imports.ErrNotFound
}

func (m *Memory) CreateProject(_ context.Context, p imports.Project) (imports.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.Projects = append(m.Projects, p)
	return p, nil
}

func (m *Memory) StudentExists(_ context.Context, projectID, schoolID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Students {
		if s.ProjectID == projectID && s.SchoolID == schoolID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) InsertStudent(_ context.Context, s imports.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.Students = append(m.Students, s)
	return nil
}

func (m *Memory) TeacherParticipationExists(_ context.Context, year int, teacherID, schoolID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.TeacherParticipation {
		if p.Year == year && p.TeacherID == teacherID && p.SchoolID == schoolID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) RecordTeacherParticipation(_ context.Context, year int, teacherID, schoolID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TeacherParticipation = append(m.TeacherParticipation, TeacherParticipation{
		Year:      year,
		TeacherID: teacherID,
		SchoolID:  schoolID,
	})
	return nil
}

func (m *Memory) SchoolParticipationExists(_ context.Context, year int, schoolID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.SchoolParticipation {
		if p.Year == year && p.SchoolID == schoolID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) RecordSchoolParticipation(_ context.Context, year int, schoolID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SchoolParticipation = append(m.SchoolParticipation, SchoolParticipation{
		Year:     year,
		SchoolID: schoolID,
	})
	return nil
}

// Package store provides Repository implementations for the import
// pipeline: a PostgreSQL store for the service and an in-memory store for
// dry runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemloop/fairtrack/internal/imports"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the store can run
// against a pool directly or inside a caller-managed transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements imports.Repository against PostgreSQL.
type Postgres struct {
	db DBTX
}

// NewPostgres creates a store over a pool or transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// InitSchema creates the entity tables if they do not exist. Natural keys
// are backed by unique constraints so a concurrent duplicate insert fails
// loudly instead of silently forking an entity.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schools (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			town TEXT NOT NULL,
			UNIQUE (name, town)
		)`,
		`CREATE TABLE IF NOT EXISTS teachers (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			UNIQUE (first_name, last_name, email)
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			school_id BIGINT NOT NULL REFERENCES schools(id),
			teacher_id BIGINT NOT NULL REFERENCES teachers(id),
			entry_id INTEGER NOT NULL UNIQUE,
			title TEXT NOT NULL,
			division TEXT NOT NULL,
			category TEXT NOT NULL,
			year INTEGER NOT NULL,
			is_group BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS students (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			project_id BIGINT NOT NULL REFERENCES projects(id),
			school_id BIGINT NOT NULL REFERENCES schools(id),
			grade INTEGER NOT NULL,
			gender TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS yearly_teacher_participation (
			year INTEGER NOT NULL,
			teacher_id BIGINT NOT NULL REFERENCES teachers(id),
			school_id BIGINT NOT NULL REFERENCES schools(id),
			PRIMARY KEY (year, teacher_id, school_id)
		)`,
		`CREATE TABLE IF NOT EXISTS yearly_school_participation (
			year INTEGER NOT NULL,
			school_id BIGINT NOT NULL REFERENCES schools(id),
			PRIMARY KEY (year, school_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) FindSchoolByName(ctx context.Context, name string) (imports.School, error) {
	var s imports.School
	err := p.db.QueryRow(ctx,
		`SELECT id, name, town FROM schools WHERE name = $1 ORDER BY id LIMIT 1`,
		name,
	).Scan(&s.ID, &s.Name, &s.Town)
	if errors.Is(err, pgx.ErrNoRows) {
		return imports.School{}, imports.ErrNotFound
	}
	if err != nil {
		return imports.School{}, fmt.Errorf("find school: %w", err)
	}
	return s, nil
}

func (p *Postgres) FindSchoolByNameAndTown(ctx context.Context, name, town string) (imports.School, error) {
	var s imports.School
	err := p.db.QueryRow(ctx,
		`SELECT id, name, town FROM schools WHERE name = $1 AND town = $2`,
		name, town,
	).Scan(&s.ID, &s.Name, &s.Town)
	if errors.Is(err, pgx.ErrNoRows) {
		return imports.School{}, imports.ErrNotFound
	}
	if err != nil {
		return imports.School{}, fmt.Errorf("find school: %w", err)
	}
	return s, nil
}

func (p *Postgres) CreateSchool(ctx context.Context, name, town string) (imports.School, error) {
	s := imports.School{Name: name, Town: town}
	err := p.db.QueryRow(ctx,
		`INSERT INTO schools (name, town) VALUES ($1, $2) RETURNING id`,
		name, town,
	).Scan(&s.ID)
	if err != nil {
		return imports.School{}, fmt.Errorf("create school: %w", err)
	}
	return s, nil
}

func (p *Postgres) FindTeacher(ctx context.Context, first, last, email string) (imports.Teacher, error) {
	var t imports.Teacher
	err := p.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, email FROM teachers
		 WHERE first_name = $1 AND last_name = $2 AND email = $3`,
		first, last, email,
	).Scan(&t.ID, &t.FirstName, &t.LastName, &t.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return imports.Teacher{}, imports.ErrNotFound
	}
	if err != nil {
		return imports.Teacher{}, fmt.Errorf("find teacher: %w", err)
	}
	return t, nil
}

func (p *Postgres) CreateTeacher(ctx context.Context, first, last, email string) (imports.Teacher, error) {
	t := imports.Teacher{FirstName: first, LastName: last, Email: email}
	err := p.db.QueryRow(ctx,
		`INSERT INTO teachers (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING id`,
		first, last, email,
	).Scan(&t.ID)
	if err != nil {
		return imports.Teacher{}, fmt.Errorf("create teacher: %w", err)
	}
	return t, nil
}

func (p *Postgres) FindProjectByEntryID(ctx context.Context, entryID int) (imports.Project, error) {
	var pr imports.Project
	err := p.db.QueryRow(ctx,
		`SELECT id, school_id, teacher_id, entry_id, title, division, category, year, is_group
		 FROM projects WHERE entry_id = $1`,
		entryID,
	).Scan(&pr.ID, &pr.SchoolID, &pr.TeacherID, &pr.EntryID, &pr.Title,
		&pr.Division, &pr.Category, &pr.Year, &pr.Group)
	if errors.Is(err, pgx.ErrNoRows) {
		return imports.Project{}, imports.ErrNotFound
	}
	if err != nil {
		return imports.Project{}, fmt.Errorf("find project: %w", err)
	}
	return pr, nil
}

func (p *Postgres) CreateProject(ctx context.Context, pr imports.Project) (imports.Project, error) {
	err := p.db.QueryRow(ctx,
		`INSERT INTO projects (school_id, teacher_id, entry_id, title, division, category, year, is_group)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		pr.SchoolID, pr.TeacherID, pr.EntryID, pr.Title, pr.Division, pr.Category, pr.Year, pr.Group,
	).Scan(&pr.ID)
	if err != nil {
		return imports.Project{}, fmt.Errorf("create project: %w", err)
	}
	return pr, nil
}

func (p *Postgres) StudentExists(ctx context.Context, projectID, schoolID int64) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE project_id = $1 AND school_id = $2)`,
		projectID, schoolID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check student: %w", err)
	}
	return exists, nil
}

func (p *Postgres) InsertStudent(ctx context.Context, s imports.Student) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO students (project_id, school_id, grade, gender) VALUES ($1, $2, $3, $4)`,
		s.ProjectID, s.SchoolID, s.Grade, s.Gender,
	)
	if err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (p *Postgres) TeacherParticipationExists(ctx context.Context, year int, teacherID, schoolID int64) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM yearly_teacher_participation
		 WHERE year = $1 AND teacher_id = $2 AND school_id = $3)`,
		year, teacherID, schoolID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check teacher participation: %w", err)
	}
	return exists, nil
}

func (p *Postgres) RecordTeacherParticipation(ctx context.Context, year int, teacherID, schoolID int64) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO yearly_teacher_participation (year, teacher_id, school_id)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		year, teacherID, schoolID,
	)
	if err != nil {
		return fmt.Errorf("record teacher participation: %w", err)
	}
	return nil
}

func (p *Postgres) SchoolParticipationExists(ctx context.Context, year int, schoolID int64) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM yearly_school_participation
		 WHERE year = $1 AND school_id = $2)`,
		year, schoolID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check school participation: %w", err)
	}
	return exists, nil
}

func (p *Postgres) RecordSchoolParticipation(ctx context.Context, year int, schoolID int64) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO yearly_school_participation (year, school_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		year, schoolID,
	)
	if err != nil {
		return fmt.Errorf("record school participation: %w", err)
	}
	return nil
}

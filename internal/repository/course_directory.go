package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CourseDirectory is a read-only adapter over the course module's tables. The
// scheduling core never mutates courses; it only resolves existence, display
// titles, and the teacher assignment join used by listing filters.
type CourseDirectory struct {
	db *sqlx.DB
}

// NewCourseDirectory constructs a CourseDirectory.
func NewCourseDirectory(db *sqlx.DB) *CourseDirectory {
	return &CourseDirectory{db: db}
}

// Exists reports whether an active course with the given id exists.
func (d *CourseDirectory) Exists(ctx context.Context, courseID int64) (bool, error) {
	var one int
	err := d.db.GetContext(ctx, &one, `SELECT 1 FROM courses WHERE id = $1 AND deleted_at IS NULL LIMIT 1`, courseID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}
	return true, nil
}

// Title returns the display title of a course, or empty when it is unknown.
func (d *CourseDirectory) Title(ctx context.Context, courseID int64) (string, error) {
	var title string
	err := d.db.GetContext(ctx, &title, `SELECT title FROM courses WHERE id = $1`, courseID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load course title: %w", err)
	}
	return title, nil
}

// CourseIDsByTeacher returns ids of active courses the teacher is assigned to.
func (d *CourseDirectory) CourseIDsByTeacher(ctx context.Context, teacherID int64) ([]int64, error) {
	const query = `SELECT c.id FROM courses c
		JOIN course_teachers ct ON ct.course_id = c.id
		WHERE ct.teacher_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.id ASC`
	var ids []int64
	if err := d.db.SelectContext(ctx, &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	return ids, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushub/timetable-api/internal/models"
)

const scheduleColumns = "id, course_id, classroom_id, day_of_week, start_time, end_time, created_at, updated_at, deleted_at"

// ScheduleRepository owns the booking collection. Every mutation re-asserts
// the non-overlap invariant inside its own transaction, so a conflict check
// done by the caller can never be the only line of defense against racing
// writers.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListByClassroomAndDay returns active bookings for a classroom on a day,
// ordered by start time. This is the candidate set for conflict checks.
func (r *ScheduleRepository) ListByClassroomAndDay(ctx context.Context, classroomID int64, day int) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE classroom_id = $1 AND day_of_week = $2 AND deleted_at IS NULL ORDER BY start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, classroomID, day); err != nil {
		return nil, fmt.Errorf("list schedules by classroom and day: %w", err)
	}
	return schedules, nil
}

// FindByID loads a schedule by id including tombstoned rows.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// Insert stores a new booking. The classroom row is locked for the duration of
// the transaction so two writers targeting the same room are serialized, then
// the overlap scan runs against the committed state. The loser of a race sees
// models.ScheduleConflictError, never a silent double booking.
func (r *ScheduleRepository) Insert(ctx context.Context, schedule *models.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.assertNoOverlap(ctx, tx, schedule, 0); err != nil {
		return err
	}

	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const query = `INSERT INTO schedules (course_id, classroom_id, day_of_week, start_time, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err = tx.QueryRowxContext(ctx, query,
		schedule.CourseID, schedule.ClassroomID, schedule.DayOfWeek,
		schedule.StartTime, schedule.EndTime, schedule.CreatedAt, schedule.UpdatedAt,
	).Scan(&schedule.ID); err != nil {
		err = mapConstraintError(err, fmt.Errorf("insert schedule: %w", err))
		return err
	}

	if err = tx.Commit(); err != nil {
		err = mapConstraintError(err, fmt.Errorf("commit insert schedule: %w", err))
		return err
	}
	return nil
}

// Update rewrites an active booking, re-running the overlap scan against all
// other active bookings for the resulting classroom and day.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update schedule: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.assertNoOverlap(ctx, tx, schedule, schedule.ID); err != nil {
		return err
	}

	schedule.UpdatedAt = time.Now().UTC()

	const query = `UPDATE schedules SET course_id = $2, classroom_id = $3, day_of_week = $4, start_time = $5, end_time = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL`
	var result sql.Result
	result, err = tx.ExecContext(ctx, query,
		schedule.ID, schedule.CourseID, schedule.ClassroomID, schedule.DayOfWeek,
		schedule.StartTime, schedule.EndTime, schedule.UpdatedAt,
	)
	if err != nil {
		err = mapConstraintError(err, fmt.Errorf("update schedule: %w", err))
		return err
	}
	var affected int64
	if affected, err = result.RowsAffected(); err != nil {
		return fmt.Errorf("update schedule rows affected: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		err = mapConstraintError(err, fmt.Errorf("commit update schedule: %w", err))
		return err
	}
	return nil
}

// assertNoOverlap locks the classroom row and scans active bookings for an
// interval collision, excluding excludeID when updating.
func (r *ScheduleRepository) assertNoOverlap(ctx context.Context, tx *sqlx.Tx, schedule *models.Schedule, excludeID int64) error {
	var lockedID int64
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM classrooms WHERE id = $1 FOR UPDATE`, schedule.ClassroomID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock classroom row: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM schedules
		WHERE classroom_id = $1 AND day_of_week = $2 AND deleted_at IS NULL
		AND start_time < $3 AND end_time > $4 AND id <> $5
		ORDER BY start_time ASC LIMIT 1`, scheduleColumns)

	var blocking models.Schedule
	err := tx.GetContext(ctx, &blocking, query,
		schedule.ClassroomID, schedule.DayOfWeek, schedule.EndTime, schedule.StartTime, excludeID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan overlapping schedules: %w", err)
	}
	return &models.ScheduleConflictError{
		Message: "classroom is already booked at this time",
		Conflict: models.ScheduleConflict{
			ScheduleID:  blocking.ID,
			CourseID:    blocking.CourseID,
			ClassroomID: blocking.ClassroomID,
			DayOfWeek:   blocking.DayOfWeek,
			StartTime:   blocking.StartTime,
			EndTime:     blocking.EndTime,
		},
	}
}

// SoftDelete tombstones an active booking. Deleting an already tombstoned row
// is rejected so double deletes surface to the caller.
func (r *ScheduleRepository) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE schedules SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, now)
	if err != nil {
		return fmt.Errorf("soft delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Restore clears the tombstone of a deleted booking.
func (r *ScheduleRepository) Restore(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE schedules SET deleted_at = NULL, updated_at = $2 WHERE id = $1 AND deleted_at IS NOT NULL`, id, now)
	if err != nil {
		// The slot may have been booked while this row was tombstoned; the
		// exclusion constraint rejects the restore in that case.
		return mapConstraintError(err, fmt.Errorf("restore schedule: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("restore schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByCourse returns active bookings for a course ordered by day then start time.
func (r *ScheduleRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE course_id = $1 AND deleted_at IS NULL ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, courseID); err != nil {
		return nil, fmt.Errorf("list schedules by course: %w", err)
	}
	return schedules, nil
}

// ListByClassroom returns active bookings for a classroom ordered by day then start time.
func (r *ScheduleRepository) ListByClassroom(ctx context.Context, classroomID int64) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE classroom_id = $1 AND deleted_at IS NULL ORDER BY day_of_week ASC, start_time ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, classroomID); err != nil {
		return nil, fmt.Errorf("list schedules by classroom: %w", err)
	}
	return schedules, nil
}

// List returns active bookings with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE deleted_at IS NULL"
	var conditions []string
	var args []interface{}

	if filter.ClassroomID != 0 {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}
	if filter.CourseIDs != nil {
		conditions = append(conditions, fmt.Sprintf("course_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.CourseIDs))
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY day_of_week ASC, start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// CountActiveByClassroom counts active bookings referencing a classroom.
func (r *ScheduleRepository) CountActiveByClassroom(ctx context.Context, classroomID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM schedules WHERE classroom_id = $1 AND deleted_at IS NULL`, classroomID); err != nil {
		return 0, fmt.Errorf("count schedules by classroom: %w", err)
	}
	return count, nil
}

// mapConstraintError converts exclusion or unique violations raised by the
// schedule table's constraints into the domain conflict error. The database
// constraint is the last arbiter when two transactions race past the scan.
func mapConstraintError(err error, fallback error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23P01" || pqErr.Code == "23505" {
			return &models.ScheduleConflictError{Message: "classroom is already booked at this time"}
		}
	}
	return fallback
}

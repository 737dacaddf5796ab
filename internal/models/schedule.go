package models

import "time"

// Schedule is a weekly-recurring reservation of one classroom for one course
// on one day-of-week and time range. Times are wall-clock "HH:MM:SS" strings
// with no date component. A non-nil DeletedAt marks the tombstone; tombstoned
// rows never participate in conflict checks.
type Schedule struct {
	ID          int64      `db:"id" json:"id"`
	CourseID    int64      `db:"course_id" json:"course_id"`
	ClassroomID int64      `db:"classroom_id" json:"classroom_id"`
	DayOfWeek   int        `db:"day_of_week" json:"day_of_week"`
	StartTime   string     `db:"start_time" json:"start_time"`
	EndTime     string     `db:"end_time" json:"end_time"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Active reports whether the schedule is not tombstoned.
func (s *Schedule) Active() bool {
	return s != nil && s.DeletedAt == nil
}

// ScheduleDetail is a schedule joined with display projections of the
// referenced course and classroom.
type ScheduleDetail struct {
	Schedule
	CourseTitle    string `json:"course_title,omitempty"`
	ClassroomLabel string `json:"classroom_label,omitempty"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	ClassroomID int64
	DayOfWeek   *int
	CourseIDs   []int64
	Page        int
	PageSize    int
}

// ScheduleConflict describes the existing booking that blocks a candidate.
type ScheduleConflict struct {
	ScheduleID  int64  `json:"schedule_id"`
	CourseID    int64  `json:"course_id"`
	ClassroomID int64  `json:"classroom_id"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// ScheduleConflictError is returned when a booking collides with an existing one.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

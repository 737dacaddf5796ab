package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/timeslot"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type scheduleStore interface {
	ListByClassroomAndDay(ctx context.Context, classroomID int64, day int) ([]models.Schedule, error)
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	Insert(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Schedule, error)
	ListByClassroom(ctx context.Context, classroomID int64) ([]models.Schedule, error)
}

type classroomFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Classroom, error)
}

// CourseDirectory resolves course references. Courses belong to an external
// module; the scheduling core only reads them.
type CourseDirectory interface {
	Exists(ctx context.Context, courseID int64) (bool, error)
	Title(ctx context.Context, courseID int64) (string, error)
	CourseIDsByTeacher(ctx context.Context, teacherID int64) ([]int64, error)
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const listCachePrefix = "timetable:list:"

// CreateScheduleRequest describes payload for creating a booking.
type CreateScheduleRequest struct {
	CourseID    int64  `json:"course_id" validate:"required"`
	ClassroomID int64  `json:"classroom_id" validate:"required"`
	DayOfWeek   *int   `json:"day_of_week" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
}

// UpdateScheduleRequest updates an existing booking; omitted fields keep their value.
type UpdateScheduleRequest struct {
	CourseID    *int64  `json:"course_id"`
	ClassroomID *int64  `json:"classroom_id"`
	DayOfWeek   *int    `json:"day_of_week"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
}

// TimetableService orchestrates booking lifecycle: validate referenced
// entities, run the overlap check against active bookings, then commit through
// the store, which re-validates inside its transaction. The service itself
// holds no state.
type TimetableService struct {
	store      scheduleStore
	classrooms classroomFinder
	courses    CourseDirectory
	cache      listCache
	cacheTTL   time.Duration
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTimetableService instantiates TimetableService. cache and metrics may be nil.
func NewTimetableService(store scheduleStore, classrooms classroomFinder, courses CourseDirectory, cache listCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		store:      store,
		classrooms: classrooms,
		courses:    courses,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// slot is a validated, normalized booking time range.
type slot struct {
	day      int
	start    int
	end      int
	startRaw string
	endRaw   string
}

// validateSlot rejects malformed input before any store access.
func validateSlot(day int, startTime, endTime string) (slot, error) {
	if !timeslot.ValidDay(day) {
		return slot{}, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 and 6")
	}
	start, err := timeslot.ParseClock(startTime)
	if err != nil {
		return slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	end, err := timeslot.ParseClock(endTime)
	if err != nil {
		return slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	if start >= end {
		return slot{}, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return slot{
		day:      day,
		start:    start,
		end:      end,
		startRaw: timeslot.FormatClock(start),
		endRaw:   timeslot.FormatClock(end),
	}, nil
}

// Create books a classroom after resolving references and checking conflicts.
func (s *TimetableService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	sl, err := validateSlot(*req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if err := s.resolveCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	classroom, err := s.resolveClassroom(ctx, req.ClassroomID)
	if err != nil {
		return nil, err
	}

	schedule := models.Schedule{
		CourseID:    req.CourseID,
		ClassroomID: req.ClassroomID,
		DayOfWeek:   sl.day,
		StartTime:   sl.startRaw,
		EndTime:     sl.endRaw,
	}

	if err := s.ensureNoConflict(ctx, schedule.ClassroomID, sl, 0); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, &schedule); err != nil {
		return nil, s.mapStoreError(err, "failed to create schedule")
	}
	s.invalidateListCache(ctx)

	return s.detail(ctx, schedule, classroom), nil
}

// Update rewrites a booking, merging omitted fields from the stored record and
// re-running the conflict check against all other active bookings.
func (s *TimetableService) Update(ctx context.Context, id int64, req UpdateScheduleRequest) (*models.ScheduleDetail, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if !existing.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Schedule not found")
	}

	updated := *existing
	if req.CourseID != nil {
		updated.CourseID = *req.CourseID
	}
	if req.ClassroomID != nil {
		updated.ClassroomID = *req.ClassroomID
	}
	if req.DayOfWeek != nil {
		updated.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		updated.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		updated.EndTime = *req.EndTime
	}

	sl, err := validateSlot(updated.DayOfWeek, updated.StartTime, updated.EndTime)
	if err != nil {
		return nil, err
	}
	updated.StartTime = sl.startRaw
	updated.EndTime = sl.endRaw

	if err := s.resolveCourse(ctx, updated.CourseID); err != nil {
		return nil, err
	}
	classroom, err := s.resolveClassroom(ctx, updated.ClassroomID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoConflict(ctx, updated.ClassroomID, sl, updated.ID); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, &updated); err != nil {
		return nil, s.mapStoreError(err, "failed to update schedule")
	}
	s.invalidateListCache(ctx)

	return s.detail(ctx, updated, classroom), nil
}

// Delete tombstones a booking. Deleting a tombstoned booking is a conflict.
func (s *TimetableService) Delete(ctx context.Context, id int64) error {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "Schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if !existing.Active() {
		return appErrors.Clone(appErrors.ErrConflict, "schedule already deleted")
	}

	if err := s.store.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrConflict, "schedule already deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidateListCache(ctx)
	return nil
}

// Restore clears a booking's tombstone. Restoring an active booking is a
// conflict, and so is restoring into a slot that was booked meanwhile.
func (s *TimetableService) Restore(ctx context.Context, id int64) (*models.ScheduleDetail, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if existing.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "schedule is not deleted")
	}

	if err := s.store.Restore(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConflict, "schedule is not deleted")
		}
		return nil, s.mapStoreError(err, "failed to restore schedule")
	}
	s.invalidateListCache(ctx)

	restored := *existing
	restored.DeletedAt = nil
	return s.detail(ctx, restored, nil), nil
}

// Get returns an active booking with display projections.
func (s *TimetableService) Get(ctx context.Context, id int64) (*models.ScheduleDetail, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if !existing.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Schedule not found")
	}
	return s.detail(ctx, *existing, nil), nil
}

// ListRequest describes filters for listing bookings.
type ListRequest struct {
	TeacherID   int64
	ClassroomID int64
	DayOfWeek   *int
	Page        int
	Limit       int
}

type listPayload struct {
	Items      []models.ScheduleDetail `json:"items"`
	Pagination *models.Pagination      `json:"pagination"`
}

// List returns active bookings with pagination metadata. The teacher filter
// joins through the course module's assigned teachers. Results are cached per
// filter and invalidated on every mutation.
func (s *TimetableService) List(ctx context.Context, req ListRequest) ([]models.ScheduleDetail, *models.Pagination, error) {
	if req.DayOfWeek != nil && !timeslot.ValidDay(*req.DayOfWeek) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 0 and 6")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.Limit
	if size <= 0 || size > 100 {
		size = 10
	}

	key := s.listCacheKey(req, page, size)
	if s.cache != nil {
		var cached listPayload
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached.Items, cached.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable list cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	filter := models.ScheduleFilter{
		ClassroomID: req.ClassroomID,
		DayOfWeek:   req.DayOfWeek,
		Page:        page,
		PageSize:    size,
	}

	if req.TeacherID != 0 {
		courseIDs, err := s.courses.CourseIDsByTeacher(ctx, req.TeacherID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher courses")
		}
		if len(courseIDs) == 0 {
			return []models.ScheduleDetail{}, models.NewPagination(page, size, 0), nil
		}
		filter.CourseIDs = courseIDs
	}

	schedules, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	details := s.decorate(ctx, schedules)
	pagination := models.NewPagination(page, size, total)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, listPayload{Items: details, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("timetable list cache write failed", zap.Error(err))
		}
	}

	return details, pagination, nil
}

// ByClassroom returns the active bookings of one classroom, day asc then start asc.
func (s *TimetableService) ByClassroom(ctx context.Context, classroomID int64) ([]models.ScheduleDetail, error) {
	if _, err := s.resolveClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	schedules, err := s.store.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom schedules")
	}
	return s.decorate(ctx, schedules), nil
}

// ByCourse returns the active bookings of one course, day asc then start asc.
func (s *TimetableService) ByCourse(ctx context.Context, courseID int64) ([]models.ScheduleDetail, error) {
	if err := s.resolveCourse(ctx, courseID); err != nil {
		return nil, err
	}
	schedules, err := s.store.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course schedules")
	}
	return s.decorate(ctx, schedules), nil
}

// ensureNoConflict runs the pairwise overlap test against the active bookings
// of the target classroom and day. The store repeats this check inside its
// write transaction; this pass exists to reject early with full conflict
// details before opening one.
func (s *TimetableService) ensureNoConflict(ctx context.Context, classroomID int64, sl slot, ignoreID int64) error {
	existing, err := s.store.ListByClassroomAndDay(ctx, classroomID, sl.day)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}

	for _, item := range existing {
		if item.ID == ignoreID {
			continue
		}
		itemStart, err := timeslot.ParseClock(item.StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule has malformed start time")
		}
		itemEnd, err := timeslot.ParseClock(item.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored schedule has malformed end time")
		}
		if timeslot.Overlaps(sl.day, sl.start, sl.end, item.DayOfWeek, itemStart, itemEnd) {
			return s.conflictError(item)
		}
	}
	return nil
}

func (s *TimetableService) conflictError(blocking models.Schedule) error {
	s.metrics.RecordConflict()
	domainErr := &models.ScheduleConflictError{
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
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message)
}

// mapStoreError translates store failures: a conflict detected inside the
// write transaction is indistinguishable to the caller from one caught at
// validation time.
func (s *TimetableService) mapStoreError(err error, message string) error {
	var conflict *models.ScheduleConflictError
	if errors.As(err, &conflict) {
		s.metrics.RecordConflict()
		return appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
	}
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *TimetableService) resolveCourse(ctx context.Context, courseID int64) error {
	exists, err := s.courses.Exists(ctx, courseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "Course not found")
	}
	return nil
}

func (s *TimetableService) resolveClassroom(ctx context.Context, classroomID int64) (*models.Classroom, error) {
	classroom, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve classroom")
	}
	if !classroom.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
	}
	return classroom, nil
}

// detail resolves display projections for a committed booking. Projection
// failures only degrade the response, never the commit.
func (s *TimetableService) detail(ctx context.Context, schedule models.Schedule, classroom *models.Classroom) *models.ScheduleDetail {
	d := &models.ScheduleDetail{Schedule: schedule}

	if title, err := s.courses.Title(ctx, schedule.CourseID); err == nil {
		d.CourseTitle = title
	} else {
		s.logger.Warn("course title lookup failed", zap.Int64("course_id", schedule.CourseID), zap.Error(err))
	}

	if classroom == nil {
		loaded, err := s.classrooms.FindByID(ctx, schedule.ClassroomID)
		if err != nil {
			s.logger.Warn("classroom lookup failed", zap.Int64("classroom_id", schedule.ClassroomID), zap.Error(err))
		} else {
			classroom = loaded
		}
	}
	if classroom != nil {
		d.ClassroomLabel = classroom.Label
	}
	return d
}

func (s *TimetableService) decorate(ctx context.Context, schedules []models.Schedule) []models.ScheduleDetail {
	details := make([]models.ScheduleDetail, 0, len(schedules))
	titles := make(map[int64]string)
	labels := make(map[int64]string)

	for _, schedule := range schedules {
		d := models.ScheduleDetail{Schedule: schedule}

		title, ok := titles[schedule.CourseID]
		if !ok {
			loaded, err := s.courses.Title(ctx, schedule.CourseID)
			if err != nil {
				s.logger.Warn("course title lookup failed", zap.Int64("course_id", schedule.CourseID), zap.Error(err))
			}
			title = loaded
			titles[schedule.CourseID] = title
		}
		d.CourseTitle = title

		label, ok := labels[schedule.ClassroomID]
		if !ok {
			classroom, err := s.classrooms.FindByID(ctx, schedule.ClassroomID)
			if err != nil {
				s.logger.Warn("classroom lookup failed", zap.Int64("classroom_id", schedule.ClassroomID), zap.Error(err))
			} else {
				label = classroom.Label
			}
			labels[schedule.ClassroomID] = label
		}
		d.ClassroomLabel = label

		details = append(details, d)
	}
	return details
}

func (s *TimetableService) listCacheKey(req ListRequest, page, size int) string {
	day := -1
	if req.DayOfWeek != nil {
		day = *req.DayOfWeek
	}
	return fmt.Sprintf("%steacher=%d:classroom=%d:day=%d:page=%d:size=%d", listCachePrefix, req.TeacherID, req.ClassroomID, day, page, size)
}

func (s *TimetableService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, listCachePrefix+"*"); err != nil {
		s.logger.Warn("timetable list cache invalidation failed", zap.Error(err))
	}
}

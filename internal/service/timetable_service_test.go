package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/timeslot"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

// mockScheduleStore mirrors the transactional store contract: mutations
// re-check the overlap invariant under a lock, so racing writers are
// serialized the way the real transaction serializes them.
type mockScheduleStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Schedule
}

func newMockScheduleStore() *mockScheduleStore {
	return &mockScheduleStore{items: make(map[int64]*models.Schedule)}
}

func (m *mockScheduleStore) overlapLocked(candidate *models.Schedule, excludeID int64) *models.Schedule {
	candStart, _ := timeslot.ParseClock(candidate.StartTime)
	candEnd, _ := timeslot.ParseClock(candidate.EndTime)
	for _, item := range m.items {
		if item.ID == excludeID || !item.Active() || item.ClassroomID != candidate.ClassroomID {
			continue
		}
		itemStart, _ := timeslot.ParseClock(item.StartTime)
		itemEnd, _ := timeslot.ParseClock(item.EndTime)
		if timeslot.Overlaps(candidate.DayOfWeek, candStart, candEnd, item.DayOfWeek, itemStart, itemEnd) {
			return item
		}
	}
	return nil
}

func conflictOf(blocking *models.Schedule) *models.ScheduleConflictError {
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

func (m *mockScheduleStore) ListByClassroomAndDay(ctx context.Context, classroomID int64, day int) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Schedule
	for _, item := range m.items {
		if item.Active() && item.ClassroomID == classroomID && item.DayOfWeek == day {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockScheduleStore) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleStore) Insert(ctx context.Context, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if blocking := m.overlapLocked(schedule, 0); blocking != nil {
		return conflictOf(blocking)
	}
	m.nextID++
	schedule.ID = m.nextID
	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	cp := *schedule
	m.items[schedule.ID] = &cp
	return nil
}

func (m *mockScheduleStore) Update(ctx context.Context, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[schedule.ID]
	if !ok || !existing.Active() {
		return sql.ErrNoRows
	}
	if blocking := m.overlapLocked(schedule, schedule.ID); blocking != nil {
		return conflictOf(blocking)
	}
	schedule.UpdatedAt = time.Now()
	cp := *schedule
	m.items[schedule.ID] = &cp
	return nil
}

func (m *mockScheduleStore) SoftDelete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || !item.Active() {
		return sql.ErrNoRows
	}
	now := time.Now()
	item.DeletedAt = &now
	return nil
}

func (m *mockScheduleStore) Restore(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Active() {
		return sql.ErrNoRows
	}
	candidate := *item
	candidate.DeletedAt = nil
	if blocking := m.overlapLocked(&candidate, id); blocking != nil {
		return conflictOf(blocking)
	}
	item.DeletedAt = nil
	return nil
}

func (m *mockScheduleStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Schedule
	for _, item := range m.items {
		if !item.Active() {
			continue
		}
		if filter.ClassroomID != 0 && item.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.DayOfWeek != nil && item.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		if filter.CourseIDs != nil {
			found := false
			for _, id := range filter.CourseIDs {
				if id == item.CourseID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *mockScheduleStore) ListByCourse(ctx context.Context, courseID int64) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Schedule
	for _, item := range m.items {
		if item.Active() && item.CourseID == courseID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockScheduleStore) ListByClassroom(ctx context.Context, classroomID int64) ([]models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Schedule
	for _, item := range m.items {
		if item.Active() && item.ClassroomID == classroomID {
			out = append(out, *item)
		}
	}
	return out, nil
}

type mockClassroomFinder struct {
	items map[int64]*models.Classroom
}

func (m *mockClassroomFinder) FindByID(ctx context.Context, id int64) (*models.Classroom, error) {
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseDirectory struct {
	titles    map[int64]string
	byTeacher map[int64][]int64
}

func (m *mockCourseDirectory) Exists(ctx context.Context, courseID int64) (bool, error) {
	_, ok := m.titles[courseID]
	return ok, nil
}

func (m *mockCourseDirectory) Title(ctx context.Context, courseID int64) (string, error) {
	return m.titles[courseID], nil
}

func (m *mockCourseDirectory) CourseIDsByTeacher(ctx context.Context, teacherID int64) ([]int64, error) {
	return m.byTeacher[teacherID], nil
}

type mockListCache struct {
	mu          sync.Mutex
	entries     map[string]listPayload
	invalidated int
}

func (m *mockListCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*listPayload) = payload
	return nil
}

func (m *mockListCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]listPayload)
	}
	m.entries[key] = value.(listPayload)
	return nil
}

func (m *mockListCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated++
	m.entries = nil
	return nil
}

func newTimetableFixture() (*TimetableService, *mockScheduleStore, *mockListCache) {
	store := newMockScheduleStore()
	classrooms := &mockClassroomFinder{items: map[int64]*models.Classroom{
		5: {ID: 5, Label: "A-101", Capacity: 40, RoomType: models.RoomLecture},
	}}
	courses := &mockCourseDirectory{
		titles:    map[int64]string{10: "Linear Algebra", 11: "Statistics"},
		byTeacher: map[int64][]int64{3: {10}},
	}
	cache := &mockListCache{}
	svc := NewTimetableService(store, classrooms, courses, cache, time.Minute, NewMetricsService(), validator.New(), zap.NewNop())
	return svc, store, cache
}

func day(d int) *int { return &d }

func TestTimetableServiceCreate(t *testing.T) {
	svc, store, _ := newTimetableFixture()

	detail, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID:    10,
		ClassroomID: 5,
		DayOfWeek:   day(1),
		StartTime:   "09:00",
		EndTime:     "10:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00:00", detail.StartTime)
	assert.Equal(t, "10:30:00", detail.EndTime)
	assert.Equal(t, "Linear Algebra", detail.CourseTitle)
	assert.Equal(t, "A-101", detail.ClassroomLabel)
	assert.Len(t, store.items, 1)
}

func TestTimetableServiceCreateConflict(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "11:00",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(1), StartTime: "10:00", EndTime: "12:00",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "classroom is already booked at this time", appErr.Message)
}

func TestTimetableServiceCreateAdjacentSlots(t *testing.T) {
	svc, store, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(1), StartTime: "10:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.Len(t, store.items, 2)
}

func TestTimetableServiceCreateSameSlotDifferentDays(t *testing.T) {
	svc, store, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "11:00",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(2), StartTime: "09:00", EndTime: "11:00",
	})
	require.NoError(t, err)
	assert.Len(t, store.items, 2)
}

func TestTimetableServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	cases := []CreateScheduleRequest{
		{CourseID: 10, ClassroomID: 5, DayOfWeek: day(7), StartTime: "09:00", EndTime: "10:00"},
		{CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "25:00", EndTime: "10:00"},
		{CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "10:00", EndTime: "09:00"},
		{CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "10:00", EndTime: "10:00"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestTimetableServiceCreateUnknownReferences(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 999, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Course not found", appErr.Message)

	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 999, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Classroom not found", appErr.Message)
}

func TestTimetableServiceUpdateKeepsOwnSlot(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	created, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	// shifting within the booking's own window must not conflict with itself
	newStart := "09:30"
	updated, err := svc.Update(context.Background(), created.ID, UpdateScheduleRequest{StartTime: &newStart})
	require.NoError(t, err)
	assert.Equal(t, "09:30:00", updated.StartTime)
	assert.Equal(t, "10:00:00", updated.EndTime)
}

func TestTimetableServiceUpdateConflict(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(1), StartTime: "10:00", EndTime: "11:00",
	})
	require.NoError(t, err)

	newStart := "09:30"
	_, err = svc.Update(context.Background(), second.ID, UpdateScheduleRequest{StartTime: &newStart})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceUpdateNotFound(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	newStart := "09:30"
	_, err := svc.Update(context.Background(), 404, UpdateScheduleRequest{StartTime: &newStart})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Schedule not found", appErr.Message)
}

func TestTimetableServiceDeleteAndRestore(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	created, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	// deleted bookings disappear from reads
	_, err = svc.Get(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// a deleted booking frees its slot
	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	// restoring into the now-occupied slot is rejected
	_, err = svc.Restore(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDeleteTwice(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	created, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "schedule already deleted", appErr.Message)
}

func TestTimetableServiceRestoreActiveBooking(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	created, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	_, err = svc.Restore(context.Background(), created.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "schedule is not deleted", appErr.Message)
}

func TestTimetableServiceRestore(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	created, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID))

	restored, err := svc.Restore(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	fetched, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestTimetableServiceListTeacherFilter(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(1), StartTime: "10:00", EndTime: "11:00",
	})
	require.NoError(t, err)

	// teacher 3 is assigned course 10 only
	details, pagination, err := svc.List(context.Background(), ListRequest{TeacherID: 3})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, int64(10), details[0].CourseID)
	assert.Equal(t, 1, pagination.TotalCount)

	// an unknown teacher matches nothing without touching the store
	details, pagination, err = svc.List(context.Background(), ListRequest{TeacherID: 99})
	require.NoError(t, err)
	assert.Empty(t, details)
	assert.Equal(t, 0, pagination.TotalCount)
}

func TestTimetableServiceListDefaultsPagination(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, pagination, err := svc.List(context.Background(), ListRequest{Page: -3, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 10, pagination.PageSize)
}

func TestTimetableServiceListRejectsBadDay(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, _, err := svc.List(context.Background(), ListRequest{DayOfWeek: day(9)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceListCaching(t *testing.T) {
	svc, store, cache := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	first, _, err := svc.List(context.Background(), ListRequest{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// second read is served from cache even after the store is emptied behind it
	store.mu.Lock()
	store.items = map[int64]*models.Schedule{}
	store.mu.Unlock()

	second, _, err := svc.List(context.Background(), ListRequest{})
	require.NoError(t, err)
	assert.Len(t, second, 1)

	// a mutation invalidates, so the next read sees the store again
	invalidatedBefore := cache.invalidated
	_, err = svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 11, ClassroomID: 5, DayOfWeek: day(2), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)
	assert.Greater(t, cache.invalidated, invalidatedBefore)

	third, _, err := svc.List(context.Background(), ListRequest{})
	require.NoError(t, err)
	assert.Len(t, third, 1)
}

func TestTimetableServiceByClassroomAndByCourse(t *testing.T) {
	svc, _, _ := newTimetableFixture()

	_, err := svc.Create(context.Background(), CreateScheduleRequest{
		CourseID: 10, ClassroomID: 5, DayOfWeek: day(1), StartTime: "09:00", EndTime: "10:00",
	})
	require.NoError(t, err)

	byRoom, err := svc.ByClassroom(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, byRoom, 1)

	byCourse, err := svc.ByCourse(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, byCourse, 1)

	_, err = svc.ByClassroom(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.ByCourse(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// Two writers race for the same slot: both pass the service-level pre-check
// against an empty classroom, then the store's serialized re-check lets
// exactly one commit.
func TestTimetableServiceConcurrentCreateSameSlot(t *testing.T) {
	svc, store, _ := newTimetableFixture()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateScheduleRequest{
				CourseID:    10,
				ClassroomID: 5,
				DayOfWeek:   day(1),
				StartTime:   "09:00",
				EndTime:     "10:00",
			})
		}(i)
	}
	wg.Wait()

	committed := 0
	for _, err := range errs {
		if err == nil {
			committed++
		} else {
			assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
		}
	}
	assert.Equal(t, 1, committed)
	assert.Len(t, store.items, 1)
}

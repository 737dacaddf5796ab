package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/service"
)

type fakeClassroomRepo struct {
	nextID int64
	items  map[int64]*models.Classroom
}

func newFakeClassroomRepo() *fakeClassroomRepo {
	return &fakeClassroomRepo{items: make(map[int64]*models.Classroom)}
}

func (f *fakeClassroomRepo) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	var out []models.Classroom
	for _, item := range f.items {
		if item.Active() {
			out = append(out, *item)
		}
	}
	return out, len(out), nil
}

func (f *fakeClassroomRepo) FindByID(ctx context.Context, id int64) (*models.Classroom, error) {
	if item, ok := f.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClassroomRepo) ExistsByLabel(ctx context.Context, label string, excludeID int64) (bool, error) {
	for _, item := range f.items {
		if item.ID != excludeID && item.Active() && strings.EqualFold(item.Label, label) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	f.nextID++
	classroom.ID = f.nextID
	cp := *classroom
	f.items[classroom.ID] = &cp
	return nil
}

func (f *fakeClassroomRepo) Update(ctx context.Context, classroom *models.Classroom) error {
	existing, ok := f.items[classroom.ID]
	if !ok || !existing.Active() {
		return sql.ErrNoRows
	}
	cp := *classroom
	f.items[classroom.ID] = &cp
	return nil
}

func (f *fakeClassroomRepo) SoftDelete(ctx context.Context, id int64) error {
	item, ok := f.items[id]
	if !ok || !item.Active() {
		return sql.ErrNoRows
	}
	now := time.Now()
	item.DeletedAt = &now
	return nil
}

func (f *fakeClassroomRepo) Restore(ctx context.Context, id int64) error {
	item, ok := f.items[id]
	if !ok || item.Active() {
		return sql.ErrNoRows
	}
	item.DeletedAt = nil
	return nil
}

type fakeScheduleCounter struct {
	counts map[int64]int
}

func (f *fakeScheduleCounter) CountActiveByClassroom(ctx context.Context, classroomID int64) (int, error) {
	return f.counts[classroomID], nil
}

func newClassroomHandlerFixture() (*ClassroomHandler, *fakeClassroomRepo, *fakeScheduleCounter) {
	repo := newFakeClassroomRepo()
	counter := &fakeScheduleCounter{counts: make(map[int64]int)}
	svc := service.NewClassroomService(repo, counter, nil, nil)
	return NewClassroomHandler(svc), repo, counter
}

func TestClassroomHandlerCreate(t *testing.T) {
	handler, repo, _ := newClassroomHandlerFixture()

	recorder := performJSON(t, http.MethodPost, "/classrooms", service.CreateClassroomRequest{
		Label:    "A-101",
		Capacity: 40,
		RoomType: "lecture",
	}, nil, handler.Create)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Len(t, repo.items, 1)
}

func TestClassroomHandlerCreateDuplicateLabel(t *testing.T) {
	handler, _, _ := newClassroomHandlerFixture()

	first := performJSON(t, http.MethodPost, "/classrooms", service.CreateClassroomRequest{
		Label: "A-101", Capacity: 40, RoomType: "lecture",
	}, nil, handler.Create)
	require.Equal(t, http.StatusCreated, first.Code)

	second := performJSON(t, http.MethodPost, "/classrooms", service.CreateClassroomRequest{
		Label: "a-101", Capacity: 20, RoomType: "lab",
	}, nil, handler.Create)
	assert.Equal(t, http.StatusConflict, second.Code)

	envelope := decodeEnvelope(t, second)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "room label already used", envelope.Error.Message)
}

func TestClassroomHandlerCreateBadRoomType(t *testing.T) {
	handler, _, _ := newClassroomHandlerFixture()

	recorder := performJSON(t, http.MethodPost, "/classrooms", service.CreateClassroomRequest{
		Label: "A-101", Capacity: 40, RoomType: "cinema",
	}, nil, handler.Create)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestClassroomHandlerGetNotFound(t *testing.T) {
	handler, _, _ := newClassroomHandlerFixture()

	recorder := performJSON(t, http.MethodGet, "/classrooms/404", nil,
		gin.Params{{Key: "id", Value: "404"}}, handler.Get)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	envelope := decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "Classroom not found", envelope.Error.Message)
}

func TestClassroomHandlerDeleteBlockedByBookings(t *testing.T) {
	handler, _, counter := newClassroomHandlerFixture()

	created := performJSON(t, http.MethodPost, "/classrooms", service.CreateClassroomRequest{
		Label: "A-101", Capacity: 40, RoomType: "lecture",
	}, nil, handler.Create)
	require.Equal(t, http.StatusCreated, created.Code)
	counter.counts[1] = 3

	recorder := performJSON(t, http.MethodDelete, "/classrooms/1", nil,
		gin.Params{{Key: "id", Value: "1"}}, handler.Delete)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	envelope := decodeEnvelope(t, recorder)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "classroom has active bookings", envelope.Error.Message)
}

func TestClassroomHandlerDeleteAndRestore(t *testing.T) {
	handler, repo, _ := newClassroomHandlerFixture()

	created := performJSON(t, http.MethodPost, "/classrooms", service.CreateClassroomRequest{
		Label: "A-101", Capacity: 40, RoomType: "lecture",
	}, nil, handler.Create)
	require.Equal(t, http.StatusCreated, created.Code)

	params := gin.Params{{Key: "id", Value: "1"}}

	recorder := performJSON(t, http.MethodDelete, "/classrooms/1", nil, params, handler.Delete)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.False(t, repo.items[1].Active())

	recorder = performJSON(t, http.MethodPost, "/classrooms/1/restore", nil, params, handler.Restore)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, repo.items[1].Active())

	// restoring an active room is a conflict
	recorder = performJSON(t, http.MethodPost, "/classrooms/1/restore", nil, params, handler.Restore)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

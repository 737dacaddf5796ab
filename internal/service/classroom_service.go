package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id int64) (*models.Classroom, error)
	ExistsByLabel(ctx context.Context, label string, excludeID int64) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
}

type scheduleCounter interface {
	CountActiveByClassroom(ctx context.Context, classroomID int64) (int, error)
}

// CreateClassroomRequest represents payload for registering classrooms.
type CreateClassroomRequest struct {
	Label    string  `json:"label" validate:"required,max=100"`
	Building *string `json:"building" validate:"omitempty,max=100"`
	Capacity int     `json:"capacity" validate:"required,gt=0"`
	RoomType string  `json:"room_type" validate:"required"`
}

// UpdateClassroomRequest represents payload for updating classrooms; omitted
// fields keep their value.
type UpdateClassroomRequest struct {
	Label    *string `json:"label" validate:"omitempty,max=100"`
	Building *string `json:"building" validate:"omitempty,max=100"`
	Capacity *int    `json:"capacity" validate:"omitempty,gt=0"`
	RoomType *string `json:"room_type"`
}

// ClassroomService orchestrates classroom registry operations.
type ClassroomService struct {
	repo      classroomRepository
	schedules scheduleCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(repo classroomRepository, schedules scheduleCounter, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, schedules: schedules, validator: validate, logger: logger}
}

// List returns active classrooms plus pagination data, ordered by label.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 10
	}
	return classrooms, models.NewPagination(page, size, total), nil
}

// Get returns an active classroom by id.
func (s *ClassroomService) Get(ctx context.Context, id int64) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if !classroom.Active() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
	}
	return classroom, nil
}

// Create registers a new classroom. The label must be unique among active rooms.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "label must not be empty")
	}
	if !models.ValidRoomType(req.RoomType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "room_type must be one of lecture, lab, seminar, virtual")
	}

	if err := s.ensureUniqueLabel(ctx, label, 0); err != nil {
		return nil, err
	}

	classroom := &models.Classroom{
		Label:    label,
		Building: normalizeOptional(req.Building),
		Capacity: req.Capacity,
		RoomType: models.RoomType(req.RoomType),
	}

	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// Update modifies an existing classroom, re-checking label uniqueness on change.
func (s *ClassroomService) Update(ctx context.Context, id int64, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	classroom, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "label must not be empty")
		}
		if !strings.EqualFold(label, classroom.Label) {
			if err := s.ensureUniqueLabel(ctx, label, id); err != nil {
				return nil, err
			}
		}
		classroom.Label = label
	}
	if req.Building != nil {
		classroom.Building = normalizeOptional(req.Building)
	}
	if req.Capacity != nil {
		classroom.Capacity = *req.Capacity
	}
	if req.RoomType != nil {
		if !models.ValidRoomType(*req.RoomType) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "room_type must be one of lecture, lab, seminar, virtual")
		}
		classroom.RoomType = models.RoomType(*req.RoomType)
	}

	if err := s.repo.Update(ctx, classroom); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return classroom, nil
}

// Remove tombstones a classroom. It is rejected while any active booking still
// references the room.
func (s *ClassroomService) Remove(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.schedules.CountActiveByClassroom(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classroom bookings")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "classroom has active bookings")
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}

// Restore clears a classroom's tombstone. The label must still be unique among
// active rooms at restore time.
func (s *ClassroomService) Restore(ctx context.Context, id int64) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	if classroom.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "classroom is not deleted")
	}

	if err := s.ensureUniqueLabel(ctx, classroom.Label, id); err != nil {
		return nil, err
	}

	if err := s.repo.Restore(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrConflict, "classroom is not deleted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore classroom")
	}
	classroom.DeletedAt = nil
	return classroom, nil
}

func (s *ClassroomService) ensureUniqueLabel(ctx context.Context, label string, excludeID int64) error {
	exists, err := s.repo.ExistsByLabel(ctx, label, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check label uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "room label already used")
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package models

import "time"

// RoomType enumerates the supported kinds of classroom.
type RoomType string

const (
	RoomLecture RoomType = "lecture"
	RoomLab     RoomType = "lab"
	RoomSeminar RoomType = "seminar"
	RoomVirtual RoomType = "virtual"
)

// ValidRoomType reports whether value is a known room type.
func ValidRoomType(value string) bool {
	switch RoomType(value) {
	case RoomLecture, RoomLab, RoomSeminar, RoomVirtual:
		return true
	}
	return false
}

// Classroom is a physical or virtual room bookings refer to. The label is
// unique among active (non-tombstoned) rooms.
type Classroom struct {
	ID        int64      `db:"id" json:"id"`
	Label     string     `db:"label" json:"label"`
	Building  *string    `db:"building" json:"building,omitempty"`
	Capacity  int        `db:"capacity" json:"capacity"`
	RoomType  RoomType   `db:"room_type" json:"room_type"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Active reports whether the classroom is not tombstoned.
func (c *Classroom) Active() bool {
	return c != nil && c.DeletedAt == nil
}

// ClassroomFilter describes query params for listing classrooms.
type ClassroomFilter struct {
	Search   string
	RoomType string
	Page     int
	PageSize int
}

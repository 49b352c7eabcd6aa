package devserver

import (
	"time"

	"github.com/lib/pq"

	"pairchat/internal/models"
)

// GuestRecord is one anonymous guest in the database.
type GuestRecord struct {
	ID          int64  `gorm:"primaryKey"`
	PublicID    string `gorm:"uniqueIndex;type:uuid"`
	DisplayName string `gorm:"type:text;not null"`
	CreatedAt   time.Time
}

func (GuestRecord) TableName() string { return "guests" }

// RoomRecord is one two-party chat room.
type RoomRecord struct {
	// PublicID is the room id exposed to clients (UUID).
	PublicID string `gorm:"primaryKey;type:uuid"`
	// Guest1ID and Guest2ID are the numeric ids of the paired guests.
	Guest1ID int64 `gorm:"index"`
	Guest2ID int64 `gorm:"index"`
	// Participants carries both guests' public ids for listing endpoints.
	Participants pq.StringArray `gorm:"type:text[]"`
	IsActive     bool           `gorm:"index"`
	ClosedReason string         `gorm:"type:text"`
	CreatedAt    time.Time
	ClosedAt     *time.Time
}

func (RoomRecord) TableName() string { return "rooms" }

// Other returns the partner's guest id for the given participant.
func (r *RoomRecord) Other(guestID int64) int64 {
	if r.Guest1ID == guestID {
		return r.Guest2ID
	}
	return r.Guest1ID
}

// Has reports whether the guest participates in the room.
func (r *RoomRecord) Has(guestID int64) bool {
	return r.Guest1ID == guestID || r.Guest2ID == guestID
}

// MessageRecord is one persisted chat message. The autoincrement ID doubles as
// the client-side dedup key.
type MessageRecord struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	RoomPublicID  string `gorm:"type:uuid;not null;index:idx_room_msg"`
	SenderGuestID int64  `gorm:"not null;index:idx_room_msg"`
	Type          string `gorm:"type:text;not null"`
	Content       string `gorm:"type:text;not null"`
	CreatedAt     time.Time
}

func (MessageRecord) TableName() string { return "messages" }

// Wire converts the record to the shared wire shape.
func (m *MessageRecord) Wire() models.WireMessage {
	return models.WireMessage{
		ID:            m.ID,
		RoomPublicID:  m.RoomPublicID,
		SenderGuestID: m.SenderGuestID,
		Type:          m.Type,
		Content:       m.Content,
		CreatedAt:     m.CreatedAt,
	}
}

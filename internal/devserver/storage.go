package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pairchat/internal/models"
)

// ErrNotFound is returned when a guest or room does not exist.
var ErrNotFound = errors.New("devserver: not found")

// Storage is the persistence and event-relay surface the handlers, hub, and
// matchmaker depend on. Tests substitute a mock.
type Storage interface {
	CreateGuest(guest *GuestRecord) error
	GetGuest(id int64) (*GuestRecord, error)

	SaveRoom(room *RoomRecord) error
	GetRoom(publicID string) (*RoomRecord, error)
	ActiveRoomForGuest(guestID int64) (*RoomRecord, error)
	CloseRoom(publicID, reason string) error

	SaveMessage(msg *MessageRecord) error
	ListMessages(roomPublicID string) ([]MessageRecord, error)

	PublishFrame(channel string, frame models.Frame) error
	SubscribeFrames() *redis.PubSub
}

// Service backs Storage with PostgreSQL for state and Redis pub/sub for the
// room-event relay, so multiple instances fan events out to each other's
// sockets.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewService wires a storage service over the given connections.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb, Ctx: context.Background()}
}

// Migrate creates the schema.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&GuestRecord{}, &RoomRecord{}, &MessageRecord{})
}

func (s *Service) CreateGuest(guest *GuestRecord) error {
	return s.DB.Create(guest).Error
}

func (s *Service) GetGuest(id int64) (*GuestRecord, error) {
	var guest GuestRecord
	err := s.DB.First(&guest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

func (s *Service) SaveRoom(room *RoomRecord) error {
	return s.DB.Save(room).Error
}

func (s *Service) GetRoom(publicID string) (*RoomRecord, error) {
	var room RoomRecord
	err := s.DB.First(&room, "public_id = ?", publicID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Service) ActiveRoomForGuest(guestID int64) (*RoomRecord, error) {
	var room RoomRecord
	err := s.DB.
		Where("is_active = ?", true).
		Where("guest1_id = ? OR guest2_id = ?", guestID, guestID).
		Order("created_at DESC").
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Service) CloseRoom(publicID, reason string) error {
	return s.DB.Model(&RoomRecord{}).
		Where("public_id = ?", publicID).
		Updates(map[string]interface{}{
			"is_active":     false,
			"closed_reason": reason,
			"closed_at":     time.Now(),
		}).Error
}

func (s *Service) SaveMessage(msg *MessageRecord) error {
	return s.DB.Create(msg).Error
}

func (s *Service) ListMessages(roomPublicID string) ([]MessageRecord, error) {
	var msgs []MessageRecord
	err := s.DB.
		Where("room_public_id = ?", roomPublicID).
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}

// PublishFrame publishes a room event frame for every instance's hub to relay.
func (s *Service) PublishFrame(channel string, frame models.Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, channel, payload).Err()
}

// SubscribeFrames subscribes to every room channel.
func (s *Service) SubscribeFrames() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, "room.*")
}

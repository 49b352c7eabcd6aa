package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pairchat/internal/models"
)

// memStore is an in-memory Storage for handler and matchmaker tests. Injected
// errors let tests exercise the failure paths without a database.
type memStore struct {
	mu       sync.Mutex
	guests   map[int64]*GuestRecord
	rooms    map[string]*RoomRecord
	messages map[string][]MessageRecord

	nextGuestID int64
	nextMsgID   int64

	published []models.Frame

	saveRoomErr   error
	activeRoomErr error
	saveMsgErr    error
}

func newMemStore() *memStore {
	return &memStore{
		guests:   make(map[int64]*GuestRecord),
		rooms:    make(map[string]*RoomRecord),
		messages: make(map[string][]MessageRecord),
	}
}

func (s *memStore) CreateGuest(guest *GuestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGuestID++
	guest.ID = s.nextGuestID
	copied := *guest
	s.guests[guest.ID] = &copied
	return nil
}

func (s *memStore) GetGuest(id int64) (*GuestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guest, ok := s.guests[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *guest
	return &copied, nil
}

func (s *memStore) SaveRoom(room *RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveRoomErr != nil {
		return s.saveRoomErr
	}
	copied := *room
	s.rooms[room.PublicID] = &copied
	return nil
}

func (s *memStore) GetRoom(publicID string) (*RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[publicID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (s *memStore) ActiveRoomForGuest(guestID int64) (*RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeRoomErr != nil {
		return nil, s.activeRoomErr
	}
	var latest *RoomRecord
	for _, room := range s.rooms {
		if !room.IsActive || !room.Has(guestID) {
			continue
		}
		if latest == nil || room.CreatedAt.After(latest.CreatedAt) {
			latest = room
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (s *memStore) CloseRoom(publicID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[publicID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	room.IsActive = false
	room.ClosedReason = reason
	room.ClosedAt = &now
	return nil
}

func (s *memStore) SaveMessage(msg *MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveMsgErr != nil {
		return s.saveMsgErr
	}
	s.nextMsgID++
	msg.ID = s.nextMsgID
	s.messages[msg.RoomPublicID] = append(s.messages[msg.RoomPublicID], *msg)
	return nil
}

func (s *memStore) ListMessages(roomPublicID string) ([]MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]MessageRecord, len(s.messages[roomPublicID]))
	copy(msgs, s.messages[roomPublicID])
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

func (s *memStore) PublishFrame(channel string, frame models.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, frame)
	return nil
}

// SubscribeFrames is unused in tests; frames are fed to the hub directly.
func (s *memStore) SubscribeFrames() *redis.PubSub { return nil }

func (s *memStore) publishedFrames() []models.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Frame, len(s.published))
	copy(out, s.published)
	return out
}

// addGuest seeds a guest and returns its id.
func (s *memStore) addGuest(name string) int64 {
	guest := &GuestRecord{
		PublicID:    "pub-" + name,
		DisplayName: name,
		CreatedAt:   time.Now(),
	}
	_ = s.CreateGuest(guest)
	return guest.ID
}

package devserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Matchmaker pairs waiting guests first come, first served. A guest with an
// active room is never re-queued; joining again simply returns that room.
type Matchmaker struct {
	store Storage
	log   zerolog.Logger

	mu      sync.Mutex
	queue   []int64
	waiting map[int64]struct{}
}

// NewMatchmaker creates a matchmaker over the given storage.
func NewMatchmaker(store Storage, log zerolog.Logger) *Matchmaker {
	return &Matchmaker{
		store:   store,
		log:     log.With().Str("component", "matchmaker").Logger(),
		waiting: make(map[int64]struct{}),
	}
}

// Join enters a guest into the queue. Returns the created or existing room
// when a partner is available, nil while the guest has to wait.
func (m *Matchmaker) Join(guestID int64) (*RoomRecord, error) {
	if room, err := m.store.ActiveRoomForGuest(guestID); err == nil {
		return room, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	partnerID, ok := m.popPartnerLocked(guestID)
	if !ok {
		if _, queued := m.waiting[guestID]; !queued {
			m.queue = append(m.queue, guestID)
			m.waiting[guestID] = struct{}{}
		}
		return nil, nil
	}

	room, err := m.createRoom(guestID, partnerID)
	if err != nil {
		// Put the partner back so they keep their place in line.
		m.queue = append([]int64{partnerID}, m.queue...)
		m.waiting[partnerID] = struct{}{}
		return nil, err
	}
	m.log.Info().Str("room", room.PublicID).
		Int64("guest1", room.Guest1ID).Int64("guest2", room.Guest2ID).
		Msg("matched")
	return room, nil
}

// Status reports the matchmaking state for a waiting guest: the room when a
// partner joined, nil while still waiting.
func (m *Matchmaker) Status(guestID int64) (*RoomRecord, error) {
	room, err := m.store.ActiveRoomForGuest(guestID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Remove(guestID)
	return room, nil
}

// Remove drops a guest from the queue, if present.
func (m *Matchmaker) Remove(guestID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.waiting[guestID]; !ok {
		return
	}
	delete(m.waiting, guestID)
	for i, id := range m.queue {
		if id == guestID {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
}

// popPartnerLocked removes and returns the first queued guest other than the
// joiner. Callers hold m.mu.
func (m *Matchmaker) popPartnerLocked(guestID int64) (int64, bool) {
	for i, id := range m.queue {
		if id == guestID {
			continue
		}
		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		delete(m.waiting, id)
		// The joiner may have been queued earlier (e.g. a retried join).
		if _, ok := m.waiting[guestID]; ok {
			delete(m.waiting, guestID)
			for j, qid := range m.queue {
				if qid == guestID {
					m.queue = append(m.queue[:j], m.queue[j+1:]...)
					break
				}
			}
		}
		return id, true
	}
	return 0, false
}

func (m *Matchmaker) createRoom(guest1, guest2 int64) (*RoomRecord, error) {
	g1, err := m.store.GetGuest(guest1)
	if err != nil {
		return nil, fmt.Errorf("loading guest %d: %w", guest1, err)
	}
	g2, err := m.store.GetGuest(guest2)
	if err != nil {
		return nil, fmt.Errorf("loading guest %d: %w", guest2, err)
	}

	room := &RoomRecord{
		PublicID:     uuid.New().String(),
		Guest1ID:     guest1,
		Guest2ID:     guest2,
		Participants: []string{g1.PublicID, g2.PublicID},
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := m.store.SaveRoom(room); err != nil {
		return nil, fmt.Errorf("saving room: %w", err)
	}
	return room, nil
}

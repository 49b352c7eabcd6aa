package session

import "pairchat/internal/models"

// messageSet is the ordered, deduplicated message view for one room. Entries
// from the history fetch, the optimistic send path, and the realtime push all
// converge here under one rule: insert by id if absent, otherwise ignore.
// First-seen order is preserved; nothing is ever removed short of a full
// session reset, which discards the whole set.
type messageSet struct {
	order []models.ChatMessage
	seen  map[int64]struct{}
}

func newMessageSet() *messageSet {
	return &messageSet{seen: make(map[int64]struct{})}
}

// insert adds a message unless its id is already present or not positive.
// Reports whether the set changed.
func (s *messageSet) insert(m models.ChatMessage) bool {
	if m.ID <= 0 {
		return false
	}
	if _, ok := s.seen[m.ID]; ok {
		return false
	}
	s.seen[m.ID] = struct{}{}
	s.order = append(s.order, m)
	return true
}

// list returns the messages in insertion order. The returned slice is a copy.
func (s *messageSet) list() []models.ChatMessage {
	out := make([]models.ChatMessage, len(s.order))
	copy(out, s.order)
	return out
}

func (s *messageSet) len() int { return len(s.order) }

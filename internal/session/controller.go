// Package session implements the chat session coordinator: a single run-loop
// state machine that drives matchmaking, keeps the message view consistent
// across the history fetch, optimistic sends, and realtime pushes, and
// guarantees teardown of its poller and channel subscription on every exit
// path.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pairchat/internal/config"
	"pairchat/internal/models"
)

// Controller is the session lifecycle state machine. All state lives on the
// run loop's goroutine; public methods enqueue commands and asynchronous
// completions re-enter the loop as closures tagged with the epoch that started
// them. Any completion from a stale epoch is discarded, so a callback that was
// in flight when the session was torn down can never mutate the next one.
type Controller struct {
	// PollInterval is the matchmaking status-check interval. Set before Run.
	PollInterval time.Duration

	backend Backend
	dialer  RealtimeDialer
	log     zerolog.Logger

	calls chan func()
	quit  chan struct{}
	done  chan struct{}
	stop  sync.Once

	updates chan struct{}
	viewMu  sync.RWMutex
	view    View

	// Everything below is owned by the run loop.
	phase   models.Phase
	sess    models.Session
	room    models.Room
	msgs    *messageSet
	busy    bool
	sending bool
	draft   string
	notice  string
	epoch   uint64
	conn    RealtimeConn
	sub     RoomSubscription
	pol     *poller
}

// New creates a controller. Start it with go ctrl.Run().
func New(backend Backend, dialer RealtimeDialer, log zerolog.Logger) *Controller {
	return &Controller{
		PollInterval: config.PollInterval,
		backend:      backend,
		dialer:       dialer,
		log:          log.With().Str("component", "session").Logger(),
		calls:        make(chan func(), 64),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		updates:      make(chan struct{}, 1),
		phase:        models.PhaseNameEntry,
		msgs:         newMessageSet(),
	}
}

// Run processes commands and events until Close is called.
func (c *Controller) Run() {
	c.publish()
	for {
		select {
		case fn := <-c.calls:
			fn()
		case <-c.quit:
			c.teardown()
			close(c.done)
			return
		}
	}
}

// Close tears everything down and stops the run loop. Blocks until the loop
// has exited; Run must have been started.
func (c *Controller) Close() {
	c.stop.Do(func() { close(c.quit) })
	<-c.done
}

// Updates signals after every state change. The channel has capacity one;
// consumers read a fresh snapshot with View after each signal.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// View returns the latest state snapshot.
func (c *Controller) View() View {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.view
}

// SubmitName creates a session for the given display name and enters
// matchmaking. Rejects empty or whitespace-only names and any phase other
// than name entry.
func (c *Controller) SubmitName(displayName string) error {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return ErrEmptyName
	}
	return c.call(func() error { return c.handleSubmitName(name) })
}

// Cancel abandons matchmaking and returns to name entry. Valid only while
// waiting; no backend notification is sent.
func (c *Controller) Cancel() error {
	return c.call(func() error {
		if c.phase != models.PhaseWaiting {
			return ErrBadPhase
		}
		c.reset("")
		return nil
	})
}

// Stop leaves the room and returns to name entry. Valid while chatting or
// after the chat ended. The leave call is best effort: its failure never
// blocks local teardown.
func (c *Controller) Stop() error {
	return c.call(func() error {
		if c.phase != models.PhaseChatting && c.phase != models.PhaseEnded {
			return ErrBadPhase
		}
		token, roomID := c.sess.Token, c.room.RoomID
		log := c.log
		go func() {
			if err := c.backend.LeaveRoom(context.Background(), token, roomID); err != nil {
				log.Debug().Err(err).Str("room", roomID).Msg("leave room failed, ignoring")
			}
		}()
		c.reset("Chat ended. You can start a new one.")
		return nil
	})
}

// SendMessage sends a message body to the active room. The draft is cleared
// before confirmation; on failure it reappears in the view so the user can
// retry.
func (c *Controller) SendMessage(body string) error {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if len(trimmed) > config.MaxMessageLength {
		return ErrMessageTooLong
	}
	return c.call(func() error { return c.handleSend(trimmed) })
}

// --- command handlers, run-loop goroutine only ---

func (c *Controller) handleSubmitName(name string) error {
	if c.phase != models.PhaseNameEntry || c.busy {
		return ErrBadPhase
	}
	c.busy = true
	c.notice = ""
	c.publish()

	epoch := c.epoch
	go func() {
		resp, err := c.backend.CreateSession(context.Background(), name)
		c.post(func() { c.onSessionCreated(epoch, name, resp, err) })
	}()
	return nil
}

func (c *Controller) onSessionCreated(epoch uint64, name string, resp models.SessionResponse, err error) {
	if epoch != c.epoch {
		return
	}
	c.busy = false
	if err != nil {
		c.log.Warn().Err(err).Msg("session creation failed")
		c.reset("Failed to connect. Please try again.")
		return
	}

	c.sess = models.Session{Token: resp.Token, GuestID: resp.Guest.ID, DisplayName: name}
	c.setPhase(models.PhaseWaiting)

	// Open the realtime connection right away so a matched room's events are
	// not missed, then join the queue. Both race the poller by design.
	cur := c.epoch
	go func() {
		conn, dialErr := c.dialer.Dial(context.Background(), resp.Token)
		if !c.post(func() { c.onDialed(cur, conn, dialErr) }) && conn != nil {
			conn.Close()
		}
	}()
	go func() {
		q, joinErr := c.backend.JoinQueue(context.Background(), resp.Token)
		c.post(func() { c.onQueueJoined(cur, q, joinErr) })
	}()
	c.startPoller()
	c.publish()
}

func (c *Controller) onDialed(epoch uint64, conn RealtimeConn, err error) {
	if epoch != c.epoch {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("realtime dial failed")
		c.reset("Failed to connect. Please try again.")
		return
	}
	c.conn = conn
	// Match may already have landed while the dial was in flight.
	if c.phase == models.PhaseChatting && c.sub == nil {
		c.subscribeRoom()
	}
}

func (c *Controller) onQueueJoined(epoch uint64, resp models.QueueResponse, err error) {
	if epoch != c.epoch {
		return
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("queue join failed")
		c.reset("Failed to connect. Please try again.")
		return
	}
	if resp.Status != models.MatchStatusMatched {
		// Still waiting; the poller advances the phase later.
		return
	}

	roomID := ""
	if resp.Room != nil {
		roomID = resp.Room.PublicID
	}
	if roomID == "" {
		c.notice = "Matched but no room id returned."
		c.publish()
		return
	}
	c.onMatched(epoch, roomID, resp.PartnerName)
}

// onMatched is the single entry point for both match sources. The phase guard
// makes the queue-join/poller race resolve to exactly one transition: the
// first matched result processed wins and any later one is a no-op.
func (c *Controller) onMatched(epoch uint64, roomID, partnerName string) {
	if epoch != c.epoch || c.phase != models.PhaseWaiting {
		return
	}
	c.stopPoller()

	if partnerName == "" {
		partnerName = "Anonymous"
	}
	c.room = models.Room{RoomID: roomID, PartnerName: partnerName}
	c.msgs = newMessageSet()
	c.setPhase(models.PhaseChatting)

	if c.conn != nil {
		c.subscribeRoom()
	}
	c.loadHistory()
	c.publish()
}

func (c *Controller) handleSend(body string) error {
	if c.phase != models.PhaseChatting {
		return ErrBadPhase
	}
	if c.room.PartnerLeft {
		return ErrPartnerLeft
	}
	if c.sending {
		return ErrSendPending
	}

	c.sending = true
	c.draft = ""
	c.publish()

	epoch, token, roomID := c.epoch, c.sess.Token, c.room.RoomID
	go func() {
		msg, err := c.backend.SendMessage(context.Background(), token, roomID, body)
		c.post(func() { c.onSendResult(epoch, roomID, body, msg, err) })
	}()
	return nil
}

func (c *Controller) onSendResult(epoch uint64, roomID, body string, msg models.WireMessage, err error) {
	if epoch != c.epoch || c.room.RoomID != roomID {
		return
	}
	c.sending = false
	if err != nil {
		c.log.Debug().Err(err).Msg("send failed, restoring draft")
		c.draft = body
		c.publish()
		return
	}
	c.msgs.insert(msg.ToChatMessage(c.sess.GuestID))
	c.publish()
}

func (c *Controller) loadHistory() {
	epoch, token, roomID := c.epoch, c.sess.Token, c.room.RoomID
	go func() {
		history, err := c.backend.ListMessages(context.Background(), token, roomID)
		if err != nil {
			// Leave the set empty; messages still arrive over the channel.
			return
		}
		c.post(func() { c.onHistory(epoch, roomID, history) })
	}()
}

func (c *Controller) onHistory(epoch uint64, roomID string, history []models.WireMessage) {
	if epoch != c.epoch || c.room.RoomID != roomID {
		return
	}
	changed := false
	for _, m := range history {
		if c.msgs.insert(m.ToChatMessage(c.sess.GuestID)) {
			changed = true
		}
	}
	if changed {
		c.publish()
	}
}

func (c *Controller) onRealtimeEvent(epoch uint64, roomID string, ev Event) {
	if epoch != c.epoch || c.room.RoomID != roomID {
		return
	}
	switch ev.Kind {
	case models.EventMessageSent:
		if c.phase != models.PhaseChatting {
			return
		}
		msg := ev.Message.ToChatMessage(c.sess.GuestID)
		if msg.Mine {
			// Own sends are reflected through the optimistic path.
			return
		}
		if c.msgs.insert(msg) {
			c.publish()
		}
	case models.EventRoomClosed:
		if c.phase != models.PhaseChatting {
			return
		}
		c.room.PartnerLeft = true
		c.setPhase(models.PhaseEnded)
		c.closeSub()
		c.notice = "Your partner has left the chat."
		c.publish()
	}
}

// --- resources ---

func (c *Controller) startPoller() {
	token, epoch := c.sess.Token, c.epoch
	p := newPoller(
		func(ctx context.Context) (models.HeartbeatResponse, error) {
			return c.backend.Heartbeat(ctx, token)
		},
		c.PollInterval,
		func(res matchResult) {
			c.post(func() { c.onMatched(epoch, res.RoomID, res.PartnerName) })
		},
		c.log,
	)
	c.pol = p
	go p.run()
}

func (c *Controller) stopPoller() {
	if c.pol != nil {
		c.pol.stop()
		c.pol = nil
	}
}

func (c *Controller) subscribeRoom() {
	sub, err := c.conn.Subscribe(c.room.RoomID, c.sess.GuestID)
	if err != nil {
		c.log.Warn().Err(err).Str("room", c.room.RoomID).Msg("room subscribe failed")
		return
	}
	c.sub = sub
	go c.forwardEvents(c.epoch, c.room.RoomID, sub)
}

func (c *Controller) forwardEvents(epoch uint64, roomID string, sub RoomSubscription) {
	for ev := range sub.Events() {
		ev := ev
		c.post(func() { c.onRealtimeEvent(epoch, roomID, ev) })
	}
}

func (c *Controller) closeSub() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
}

// teardown releases the poller, subscription, and connection and invalidates
// every outstanding callback by bumping the epoch.
func (c *Controller) teardown() {
	c.stopPoller()
	c.closeSub()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.epoch++
	c.sess = models.Session{}
	c.room = models.Room{}
	c.msgs = newMessageSet()
	c.busy = false
	c.sending = false
	c.draft = ""
}

func (c *Controller) reset(notice string) {
	c.teardown()
	c.setPhase(models.PhaseNameEntry)
	c.notice = notice
	c.publish()
}

func (c *Controller) setPhase(p models.Phase) {
	if c.phase != p {
		c.log.Debug().Stringer("from", c.phase).Stringer("to", p).Msg("phase transition")
	}
	c.phase = p
}

// --- plumbing ---

func (c *Controller) post(fn func()) bool {
	select {
	case c.calls <- fn:
		return true
	case <-c.quit:
		return false
	}
}

func (c *Controller) call(fn func() error) error {
	reply := make(chan error, 1)
	if !c.post(func() { reply <- fn() }) {
		return ErrControllerClosed
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrControllerClosed
	}
}

func (c *Controller) publish() {
	v := View{
		Phase:       c.phase,
		DisplayName: c.sess.DisplayName,
		PartnerName: c.room.PartnerName,
		PartnerLeft: c.room.PartnerLeft,
		Messages:    c.msgs.list(),
		Busy:        c.busy,
		Sending:     c.sending,
		Draft:       c.draft,
		Notice:      c.notice,
	}
	c.viewMu.Lock()
	c.view = v
	c.viewMu.Unlock()

	select {
	case c.updates <- struct{}{}:
	default:
	}
}

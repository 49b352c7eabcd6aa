package session

import "errors"

var (
	// ErrEmptyName rejects empty or whitespace-only display names.
	ErrEmptyName = errors.New("session: display name is empty")
	// ErrBadPhase rejects an action that is not legal in the current phase.
	ErrBadPhase = errors.New("session: action not valid in current phase")
	// ErrEmptyMessage rejects empty or whitespace-only message bodies.
	ErrEmptyMessage = errors.New("session: message body is empty")
	// ErrMessageTooLong rejects bodies over the configured length cap.
	ErrMessageTooLong = errors.New("session: message body too long")
	// ErrSendPending rejects a send while a previous send is unconfirmed.
	ErrSendPending = errors.New("session: a send is already in flight")
	// ErrPartnerLeft rejects sends after the partner left the room.
	ErrPartnerLeft = errors.New("session: partner has left the room")
	// ErrControllerClosed is returned once the controller has shut down.
	ErrControllerClosed = errors.New("session: controller closed")
)

package session

import "pairchat/internal/models"

// View is the full signal surface the presentation layer needs: the current
// phase, room, message list, pending flags, and the last user-visible notice.
// Snapshots are immutable; Messages is a copy.
type View struct {
	Phase       models.Phase
	DisplayName string
	PartnerName string
	PartnerLeft bool
	Messages    []models.ChatMessage
	// Busy is set while the session is being created.
	Busy bool
	// Sending is set while a message send awaits confirmation.
	Sending bool
	// Draft holds a restored message body after a failed send.
	Draft string
	// Notice is the last user-visible notice, empty when there is none.
	Notice string
}

package session

import "github.com/brainplay/roomsync/internal/room"

// Router decides, for one delivered message, whether it belongs in a
// given participant's local history.
//
// Broadcast messages are appended for everyone present at delivery
// time. Directed messages are appended only for the named recipient;
// the sender's own copy is retained locally at send time (see
// Controller.SendMessage), independent of the channel round trip, so it
// is excluded here to avoid a duplicate.
type Router struct{}

// ShouldAppend reports whether localID's history should include msg.
func (Router) ShouldAppend(msg room.Message, localID string) bool {
	if !msg.Directed() {
		return true
	}
	return msg.RecipientID == localID && msg.Sender.ID != localID
}

// RetainForSender reports whether the sender must append its own copy
// when issuing the message, rather than waiting for delivery. True only
// for directed messages: a broadcast comes back to its sender through
// the channel like everyone else's copy.
func (Router) RetainForSender(msg room.Message) bool {
	return msg.Directed()
}

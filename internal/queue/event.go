// Package queue defines the activity messages exchanged over the
// message broker and the consumer that records them.
package queue

// ActivityQueueName is the durable queue activity events are routed to.
const ActivityQueueName = "supply.activity"

// ActivityEvent is published after a mutation succeeds against the
// service.  It carries enough context for an audit trail without
// querying the service again.
type ActivityEvent struct {
	Kind       string `json:"kind"`
	ActorRole  string `json:"actor_role"`
	ActorID    int64  `json:"actor_id,omitempty"`
	RequestID  int64  `json:"request_id,omitempty"`
	UserID     int64  `json:"user_id,omitempty"`
	ComplexID  int64  `json:"complex_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Event kinds.
const (
	KindRequestCreated       = "request.created"
	KindRequestEdited        = "request.edited"
	KindRequestStatusChanged = "request.status_changed"
	KindRequestEscalated     = "request.escalated"
	KindRequestOwnerDecided  = "request.owner_decided"
	KindRequestPhoto         = "request.photo_uploaded"
	KindComplexCreated       = "complex.created"
	KindInviteCreated        = "invite.created"
	KindInviteAccepted       = "invite.accepted"
	KindUserPasswordReset    = "user.password_reset"
	KindUserEnabled          = "user.enabled"
	KindUserDisabled         = "user.disabled"
	KindUserDeleted          = "user.deleted"
)

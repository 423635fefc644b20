package audit

import "time"

// Event records one lifecycle action on a stored resource.
type Event struct {
	Timestamp  time.Time
	Resource   string
	ResourceID int64
	Action     Action
	Reason     string
	RequestID  string
}

type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionRejected Action = "rejected"
)

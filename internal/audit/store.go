package audit

import "context"

// Store persists audit events. ListByResource returns events oldest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByResource(ctx context.Context, resource string, resourceID int64) ([]Event, error)
}

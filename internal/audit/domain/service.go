package domain

import (
	"context"
	"errors"
)

// Service appends audit records. Writes are best-effort from the caller's
// point of view; a failed audit write never rolls back the action it
// describes.
type Service interface {
	Record(ctx context.Context, actorType ActorType, actorID string, action string, targetType string, targetID string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidTarget = errors.New("invalid_target")
)

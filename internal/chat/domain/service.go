package domain

import (
	"context"
	"errors"
)

// Service persists and reads chat history.
type Service interface {
	// Save stores a message, assigning the id and server timestamp, and
	// returns the stored record. Broadcasts must use the return value so
	// every recipient sees the authoritative timestamp.
	Save(ctx context.Context, msg Message) (Message, error)
	History(ctx context.Context, userID, companyID string, limit int) ([]Message, error)
}

var (
	ErrInvalidMessage = errors.New("invalid_message")
	ErrInvalidSender  = errors.New("invalid_sender")
)

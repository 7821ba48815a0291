package domain

import (
	"context"
	"errors"
)

// Service persists interview outcomes.
type Service interface {
	RecordOutcome(ctx context.Context, outcome Outcome) (Outcome, error)
}

var ErrInvalidOutcome = errors.New("invalid_outcome")

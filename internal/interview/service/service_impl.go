package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nextway/internal/clock"
	interviewdomain "github.com/smallbiznis/nextway/internal/interview/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) interviewdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("interview.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) RecordOutcome(ctx context.Context, outcome interviewdomain.Outcome) (interviewdomain.Outcome, error) {
	outcome.RoomID = strings.TrimSpace(outcome.RoomID)
	outcome.ApplicationID = strings.TrimSpace(outcome.ApplicationID)
	outcome.UserID = strings.TrimSpace(outcome.UserID)
	if outcome.ApplicationID == "" || outcome.UserID == "" {
		return interviewdomain.Outcome{}, interviewdomain.ErrInvalidOutcome
	}

	outcome.ID = s.genID.Generate()
	if outcome.EndedAt.IsZero() {
		outcome.EndedAt = s.clock.Now()
	}

	if err := s.db.WithContext(ctx).Create(&outcome).Error; err != nil {
		return interviewdomain.Outcome{}, err
	}
	return outcome, nil
}

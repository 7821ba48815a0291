package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	chatdomain "github.com/smallbiznis/nextway/internal/chat/domain"
	"github.com/smallbiznis/nextway/internal/clock"
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

func NewService(p Params) chatdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("chat.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Save(ctx context.Context, msg chatdomain.Message) (chatdomain.Message, error) {
	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.CompanyID = strings.TrimSpace(msg.CompanyID)
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.UserID == "" || msg.CompanyID == "" || msg.Content == "" {
		return chatdomain.Message{}, chatdomain.ErrInvalidMessage
	}
	if msg.Sender != chatdomain.SenderUser && msg.Sender != chatdomain.SenderCompany {
		return chatdomain.Message{}, chatdomain.ErrInvalidSender
	}

	msg.ID = s.genID.Generate()
	msg.SentAt = s.clock.Now()

	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return chatdomain.Message{}, err
	}
	return msg, nil
}

func (s *Service) History(ctx context.Context, userID, companyID string, limit int) ([]chatdomain.Message, error) {
	userID = strings.TrimSpace(userID)
	companyID = strings.TrimSpace(companyID)
	if userID == "" || companyID == "" {
		return nil, chatdomain.ErrInvalidMessage
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var messages []chatdomain.Message
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Order("sent_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

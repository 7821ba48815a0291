package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nextway/internal/audit"
	"github.com/smallbiznis/nextway/internal/chat"
	"github.com/smallbiznis/nextway/internal/clock"
	"github.com/smallbiznis/nextway/internal/config"
	"github.com/smallbiznis/nextway/internal/interview"
	"github.com/smallbiznis/nextway/internal/migration"
	"github.com/smallbiznis/nextway/internal/observability"
	"github.com/smallbiznis/nextway/internal/payment"
	"github.com/smallbiznis/nextway/internal/plan"
	"github.com/smallbiznis/nextway/internal/realtime/dispatch"
	"github.com/smallbiznis/nextway/internal/realtime/hub"
	"github.com/smallbiznis/nextway/internal/seed"
	"github.com/smallbiznis/nextway/internal/server"
	"github.com/smallbiznis/nextway/internal/subscription"
	"github.com/smallbiznis/nextway/internal/subscription/sweep"
	"github.com/smallbiznis/nextway/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureDefaultPlans(conn)
		}),

		audit.Module,
		plan.Module,
		chat.Module,
		interview.Module,
		payment.Module,
		subscription.Module,
		sweep.Module,
		hub.Module,
		dispatch.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

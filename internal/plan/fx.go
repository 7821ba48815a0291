package plan

import (
	"github.com/smallbiznis/nextway/internal/plan/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.repository",
	fx.Provide(repository.NewPlanCache),
	fx.Provide(repository.Provide),
)

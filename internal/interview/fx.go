package interview

import (
	"github.com/smallbiznis/nextway/internal/interview/service"
	"go.uber.org/fx"
)

var Module = fx.Module("interview.service",
	fx.Provide(service.NewService),
)

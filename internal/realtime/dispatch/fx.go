package dispatch

import (
	subscriptiondomain "github.com/smallbiznis/nextway/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("realtime.dispatch",
	fx.Provide(NewDispatcher),
	fx.Provide(func(d *Dispatcher) subscriptiondomain.Notifier { return d }),
)

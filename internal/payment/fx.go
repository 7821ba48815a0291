package payment

import (
	"github.com/smallbiznis/nextway/internal/config"
	paymentdomain "github.com/smallbiznis/nextway/internal/payment/domain"
	"github.com/smallbiznis/nextway/internal/payment/razorpay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the Razorpay gateway client.
var Module = fx.Module("payment",
	fx.Provide(provideGateway),
)

func provideGateway(cfg config.Config, log *zap.Logger) paymentdomain.Gateway {
	return razorpay.NewClient(cfg.Razorpay, log)
}

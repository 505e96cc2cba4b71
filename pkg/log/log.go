package log

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/config"
)

var Module = fx.Module("log",
	fx.Provide(NewLogger),
)

// NewLogger builds the application logger. Production gets JSON output,
// everything else the human-readable development encoder.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

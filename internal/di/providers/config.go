// Package providers contains dependency injection providers for the library.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/openbookapp/openbook-library/internal/config"
	"github.com/openbookapp/openbook-library/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Store.DataPath,
		"store_driver", cfg.Store.Driver,
	)

	return log, nil
}

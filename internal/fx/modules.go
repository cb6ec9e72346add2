package fx

import (
	"context"

	"guandan-scorekeeper/internal/apperr"
	"guandan-scorekeeper/internal/config"
	"guandan-scorekeeper/internal/database"
	"guandan-scorekeeper/internal/docstore"
	"guandan-scorekeeper/internal/logger"
	"guandan-scorekeeper/internal/repository"
	"guandan-scorekeeper/internal/server"
	"guandan-scorekeeper/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideStore opens the backend named by STORE_BACKEND and ties its
// lifetime to the application.
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (service.GameStore, error) {
	if cfg.StoreBackend == config.BackendJSON {
		store := docstore.New(cfg, logger)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				dropped, err := store.Prune(ctx)
				if err != nil {
					return err
				}
				logger.Info().Int("dropped", dropped).Str("path", cfg.DataFile).Msg("document store ready")
				return nil
			},
		})
		return store, nil
	}

	sqlDB, err := database.New(cfg, logger)
	if err != nil {
		return nil, apperr.Storage(apperr.CodeDBConnection, "open "+cfg.DBPath, err)
	}
	reader, err := database.NewReader(cfg, logger)
	if err != nil {
		sqlDB.Close()
		return nil, apperr.Storage(apperr.CodeDBConnection, "open reader "+cfg.DBPath, err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := reader.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database reader")
			}
			if err := sqlDB.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			return nil
		},
	})
	return repository.NewGameRepository(sqlDB, reader, logger), nil
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// store
	fx.Provide(ProvideStore),
	// svc
	fx.Provide(service.NewGameService),
	// server
	fx.Provide(server.NewGameHandler),
	fx.Provide(server.NewGameRPC),
	fx.Provide(server.NewHandler),
)

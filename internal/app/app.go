// Package app wires the server with fx: config and logger are supplied by
// the caller, everything else is provided here.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/robalobadob/rankedle/internal/auth"
	"github.com/robalobadob/rankedle/internal/config"
	"github.com/robalobadob/rankedle/internal/events"
	"github.com/robalobadob/rankedle/internal/httpserver"
	"github.com/robalobadob/rankedle/internal/observability"
	"github.com/robalobadob/rankedle/internal/rank"
	"github.com/robalobadob/rankedle/internal/ranked"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/words"
)

const ShutdownTimeout = 10 * time.Second

var Module = fx.Options(
	fx.Provide(ProvideStores),
	fx.Provide(ProvideWords),
	fx.Provide(ProvideEngine),
	fx.Provide(ProvideScheme),
	fx.Provide(ProvidePublisher),
	fx.Provide(ProvideMetrics),
	// svc
	fx.Provide(ProvideService),
	fx.Provide(ProvideAccounts),
	fx.Provide(ProvideIssuer),
	// server
	fx.Provide(ProvideServer),
)

// New builds the serve application.
func New(cfg *config.Config, logger zerolog.Logger, opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{
		fx.Supply(cfg, logger),
		Module,
		fx.Invoke(RunServer),
	}, opts...)...)
}

func ProvideStores(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return s.Close() }})
	return s, nil
}

func ProvideWords(cfg *config.Config, logger zerolog.Logger) (*words.List, error) {
	l, err := words.Load(words.Config{
		AnswersFile: cfg.AnswersFile,
		AllowedFile: cfg.AllowedFile,
		Salt:        cfg.DailySalt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load word lists: %w", err)
	}
	a, g := l.Stats()
	logger.Info().Int("answers", a).Int("allowed", g).Msg("word lists loaded")
	return l, nil
}

func ProvideEngine(cfg *config.Config) (*rating.Engine, error) {
	f, err := rating.FormulaByName(cfg.RatingFormula)
	if err != nil {
		return nil, err
	}
	return rating.NewEngine(f), nil
}

func ProvideScheme(cfg *config.Config) (rank.Scheme, error) {
	return rank.SchemeByName(cfg.RankScheme)
}

// ProvidePublisher connects to NATS when NATS_URL is set; otherwise events are dropped.
func ProvidePublisher(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Noop{}, nil
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return p.Close() }})
	return p, nil
}

func ProvideMetrics(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*observability.Metrics, error) {
	m, err := observability.New(observability.Config{
		Exporter:    cfg.MetricsExporter,
		Interval:    cfg.MetricsInterval,
		ServiceName: "rankedle",
		Environment: cfg.Env,
	}, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: m.Shutdown})
	return m, nil
}

type serviceParams struct {
	fx.In

	Config    *config.Config
	Logger    zerolog.Logger
	Stores    *Stores
	Words     *words.List
	Engine    *rating.Engine
	Scheme    rank.Scheme
	Publisher events.Publisher
	Metrics   *observability.Metrics
}

func ProvideService(p serviceParams) *ranked.Service {
	return ranked.New(ranked.Options{
		Stats:       p.Stores.Stats,
		Sessions:    p.Stores.Sessions,
		Words:       p.Words,
		Engine:      p.Engine,
		Scheme:      p.Scheme,
		Publisher:   p.Publisher,
		Metrics:     p.Metrics,
		Logger:      p.Logger,
		StrictWords: p.Config.StrictWords,
	})
}

func ProvideAccounts(s *Stores) *auth.Accounts {
	return auth.NewAccounts(s.Users)
}

func ProvideIssuer(cfg *config.Config) *auth.Issuer {
	return auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiry)
}

type serverParams struct {
	fx.In

	Config   *config.Config
	Logger   zerolog.Logger
	Service  *ranked.Service
	Accounts *auth.Accounts
	Issuer   *auth.Issuer
	Words    *words.List
	Metrics  *observability.Metrics
}

func ProvideServer(p serverParams) *httpserver.Server {
	return httpserver.New(httpserver.Deps{
		Service:  p.Service,
		Accounts: p.Accounts,
		Issuer:   p.Issuer,
		Words:    p.Words,
		Metrics:  p.Metrics,
		Logger:   p.Logger,
		Settings: httpserver.Settings{
			ClientOrigins: p.Config.ClientOrigins,
			CookieName:    p.Config.CookieName,
			AnonCookie:    p.Config.AnonCookie,
			Secure:        p.Config.Production(),
		},
	})
}

// RunServer binds the HTTP server to the fx lifecycle.
func RunServer(lc fx.Lifecycle, server *httpserver.Server, cfg *config.Config, logger zerolog.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

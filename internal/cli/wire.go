package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
	"github.com/tatianab/eva-escape/internal/config"
	"github.com/tatianab/eva-escape/internal/engine"
	"github.com/tatianab/eva-escape/internal/logging"
	"github.com/tatianab/eva-escape/internal/metrics"
	"github.com/tatianab/eva-escape/internal/oracle"
	"github.com/tatianab/eva-escape/internal/rules"
	"github.com/tatianab/eva-escape/internal/store"
)

// app is everything a command needs, built from configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error
}

func wireApp(v *viper.Viper, configFile string) (*app, error) {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.OpenFile(cfg.LogFile, level)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &app{cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

func (a *app) Close() error {
	return a.closeLog()
}

func (a *app) rules() (*rules.Rules, error) {
	p, err := rules.LoadPolicy(a.cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	return rules.New(p)
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, a.cfg.LogDB)
}

// newOracle picks the provider. The returned close func is never nil.
func (a *app) newOracle(ctx context.Context) (oracle.Oracle, func() error, error) {
	noop := func() error { return nil }
	switch a.cfg.Provider {
	case config.ProviderGemini:
		g, err := oracle.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.Model)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	case config.ProviderAnthropic:
		return oracle.NewAnthropic(a.cfg.AnthropicAPIKey, a.cfg.Model), noop, nil
	case config.ProviderOffline:
		return oracle.NewOffline(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown provider %q", a.cfg.Provider)
}

// engineDeps are the pieces an engine is built from and must be released.
type engineDeps struct {
	engine  *engine.Engine
	store   *store.Store
	metrics *metrics.Metrics
	closers []func() error
}

func (d *engineDeps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

func (a *app) newEngine(ctx context.Context) (*engineDeps, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := a.rules()
	if err != nil {
		return nil, err
	}

	deps := &engineDeps{metrics: metrics.New()}
	o, closeOracle, err := a.newOracle(ctx)
	if err != nil {
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	deps.closers = append(deps.closers, closeOracle)

	st, err := a.openStore(ctx)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.store = st
	deps.closers = append(deps.closers, st.Close)

	deps.engine, err = engine.New(engine.Options{
		Oracle:  o,
		Rules:   r,
		Store:   st,
		Metrics: deps.metrics,
		Logger:  a.logger,
		Timeout: a.cfg.OracleTimeout,
	})
	if err != nil {
		deps.Close()
		return nil, err
	}
	a.logger.Info("engine ready",
		slog.String("provider", a.cfg.Provider),
		slog.String("policy_file", a.cfg.PolicyFile),
		slog.Duration("oracle_timeout", a.cfg.OracleTimeout),
	)
	return deps, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/kbukum/crudkit/component"
	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/httpclient"
	"github.com/kbukum/crudkit/logger"
	"github.com/kbukum/crudkit/observability"
	"github.com/kbukum/crudkit/provider"
	"github.com/kbukum/crudkit/stream"
	"github.com/kbukum/crudkit/version"
)

type exchange = provider.RequestResponse[crud.Request, crud.Response]

// session holds what one command builds before its request and tears
// down after it.
type session struct {
	cfg        *Config
	log        *logger.Logger
	components *component.Registry
	adapters   []*httpclient.Component
	metrics    *observability.Metrics
	provider   *crud.Provider
	shutdown   []func(context.Context) error
}

func newSession(ctx context.Context, cfg *Config, stderr io.Writer) (_ *session, err error) {
	s := &session{
		cfg:        cfg,
		log:        newLogger(cfg, stderr),
		components: component.NewRegistry(),
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, s.close(context.Background()))
		}
	}()

	if err := s.startTelemetry(ctx); err != nil {
		return nil, err
	}

	if err := s.startAdapters(ctx); err != nil {
		return nil, err
	}

	m := provider.NewManager(provider.NewRegistry[exchange](), &provider.RoundRobinSelector[exchange]{})
	for _, c := range s.adapters {
		m.Register(c.Name(), func(map[string]any) (exchange, error) {
			a := c.Adapter()
			if a == nil {
				return nil, fmt.Errorf("adapter %s is not started", c.Name())
			}
			return a, nil
		})
		if err := m.Initialize(ctx, c.Name(), nil); err != nil {
			return nil, err
		}
	}

	p := provider.Chain(
		provider.WithLogging[crud.Request, crud.Response](s.log),
		provider.WithTracing[crud.Request, crud.Response](cfg.Name),
		provider.WithMetrics[crud.Request, crud.Response](s.metrics),
		provider.WithResilience[crud.Request, crud.Response](provider.ResilienceConfig{
			RateLimiter: cfg.RateLimit,
			IsFailure:   crud.IsRetryable,
		}),
	)(provider.Balanced(cfg.Name, m))

	base, err := cfg.Defaults.Build()
	if err != nil {
		return nil, err
	}
	opts := []crud.Option{crud.WithName(cfg.Name), crud.WithTemplate(base)}
	if cfg.Bulkhead != nil {
		opts = append(opts, crud.WithExecutor(stream.NewBoundedExecutor(*cfg.Bulkhead)))
	}
	s.provider = crud.NewProvider(crud.FromProvider(p), opts...)
	return s, nil
}

// newLogger logs to stderr, with colors only on a terminal.
func newLogger(cfg *Config, w io.Writer) *logger.Logger {
	lc := cfg.Logging
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		lc.NoColor = true
	}
	l := logger.NewWithWriter(&lc, w, cfg.Name)
	logger.SetGlobalLogger(l)
	return l
}

func (s *session) startTelemetry(ctx context.Context) error {
	svc := observability.Service{
		Name:        s.cfg.Name,
		Version:     version.Short(),
		Environment: s.cfg.Environment,
	}
	if s.cfg.Tracing != nil {
		tc := *s.cfg.Tracing
		tc.Service = tc.Service.Inherit(svc)
		tp, err := observability.InitTracer(ctx, tc)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		s.shutdown = append(s.shutdown, tp.Shutdown)
	}
	if s.cfg.Metrics != nil {
		mc := *s.cfg.Metrics
		mc.Service = mc.Service.Inherit(svc)
		mp, err := observability.InitMeter(ctx, mc)
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		s.shutdown = append(s.shutdown, mp.Shutdown)
	}

	metrics, err := observability.NewMetrics(observability.Meter(s.cfg.Name))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	s.metrics = metrics
	return nil
}

// startAdapters starts one HTTP adapter per base URL.
func (s *session) startAdapters(ctx context.Context) error {
	urls := append([]string{s.cfg.Client.BaseURL}, s.cfg.Endpoints...)
	s.adapters = make([]*httpclient.Component, 0, len(urls))
	for i, u := range urls {
		c := s.cfg.Client
		c.BaseURL = u
		if len(urls) > 1 {
			c.Name = fmt.Sprintf("%s-%d", s.cfg.Client.Name, i)
		}
		comp := httpclient.NewComponent(c)
		if err := s.components.Register(comp); err != nil {
			return err
		}
		s.adapters = append(s.adapters, comp)
	}
	return s.components.StartAll(ctx)
}

// logHealth reports the health of the started adapters at debug level.
func (s *session) logHealth(ctx context.Context) {
	sh := s.components.Health(ctx, s.cfg.Name, version.Short())
	for _, h := range sh.Components {
		s.log.Debug("adapter health", logger.Fields(
			"adapter", h.Name,
			"status", string(h.Status),
			"message", h.Message,
		))
	}
	if sh.Status != observability.HealthStatusUp {
		s.log.Warn("service unhealthy", logger.Fields("status", string(sh.Status)))
	}
}

func (s *session) close(ctx context.Context) error {
	errs := []error{s.components.StopAll(ctx)}
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, s.shutdown[i](ctx))
	}
	return errors.Join(errs...)
}

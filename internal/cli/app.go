package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	checkinmetrics "attendance/internal/checkin/metrics"
	"attendance/internal/checkin/service"
	"attendance/internal/coordinator"
	coordmetrics "attendance/internal/coordinator/metrics"
	"attendance/internal/geo"
	geometrics "attendance/internal/geo/metrics"
	"attendance/internal/identity"
	"attendance/internal/identity/fingerprint"
	idmetrics "attendance/internal/identity/metrics"
	"attendance/internal/identity/store"
	"attendance/internal/identity/store/memtier"
	"attendance/internal/identity/store/redistier"
	"attendance/internal/identity/store/sqltier"
	"attendance/internal/platform/config"
	"attendance/internal/platform/database"
	"attendance/internal/platform/logger"
	platformmetrics "attendance/internal/platform/metrics"
	platformredis "attendance/internal/platform/redis"
	"attendance/internal/rpc"
	rpcmetrics "attendance/internal/rpc/metrics"
	rpcmodels "attendance/internal/rpc/models"
	"attendance/internal/rpc/transport/httptransport"
	"attendance/pkg/platform/audit"
	"attendance/pkg/platform/audit/publisher"
	"attendance/pkg/platform/audit/store/kafka"
	auditmemory "attendance/pkg/platform/audit/store/memory"
	"attendance/pkg/platform/audit/store/sqlstore"
)

const (
	auditBuffer     = 256
	auditPartitions = 3
)

// App is the fully wired client stack shared by every command.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Registry    *prometheus.Registry
	Service     *service.Service
	Resolver    *identity.Resolver
	Coordinator *coordinator.Coordinator
	Monitor     *rpc.Monitor
	Audit       *publisher.Publisher

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// BuildParams carries the per-invocation inputs that are not configuration.
type BuildParams struct {
	Position  geo.Provider
	Confirmer service.Confirmer
	Progress  io.Writer
	Verbose   bool
}

// AppBuilder constructs the stack for one command invocation.
type AppBuilder func(ctx context.Context, params BuildParams) (*App, error)

// BuildApp loads configuration and wires the production stack: SQL-backed
// durable identity and audit, optional Redis redundant tier, optional Kafka
// audit stream, and the signed HTTP transport.
func BuildApp(ctx context.Context, params BuildParams) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if params.Verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.LogFormat, nil)

	app := &App{Config: cfg, Logger: log, Registry: platformmetrics.NewRegistry()}
	if err := app.wire(ctx, params); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, params BuildParams) error {
	cfg, log := a.Config, a.Logger

	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.onClose(db.Close)

	auditStore, err := a.auditStore(ctx, db)
	if err != nil {
		return err
	}
	a.Audit = publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithFallback(auditmemory.NewInMemoryStore()),
		publisher.WithLogger(log),
	)
	a.onClose(func() error {
		a.Audit.Close()
		return nil
	})

	st, err := a.identityStore(ctx, db)
	if err != nil {
		return err
	}
	a.Resolver = identity.NewResolver(st,
		identity.WithIPSource(fingerprint.IPLookup{URL: cfg.IPLookupURL, Logger: log}),
		identity.WithAppVersion(cfg.AppVersion),
		identity.WithLogger(log),
		identity.WithMetrics(idmetrics.New(a.Registry)),
		identity.WithAudit(a.Audit),
	)

	transport, err := httptransport.New(cfg.Endpoint, httptransport.WithSigningKey([]byte(cfg.RPCSigningKey), cfg.RPCIssuer))
	if err != nil {
		return fmt.Errorf("rpc transport: %w", err)
	}
	rpcMetrics := rpcmetrics.New(a.Registry)
	a.Monitor = rpc.NewMonitor(rpc.WithMonitorMetrics(rpcMetrics))
	client := rpc.NewClient(transport,
		rpc.WithMonitor(a.Monitor),
		rpc.WithMetrics(rpcMetrics),
		rpc.WithDefaultTimeout(cfg.APITimeout),
		rpc.WithLogger(log),
	)
	scheduler := rpc.NewScheduler(client,
		rpc.WithBackoff(cfg.RetryInitialDelay, cfg.RetryJitterMax),
		rpc.WithCallTimeout(cfg.APITimeout),
		rpc.WithSchedulerLogger(log),
		rpc.WithRetryCounter(rpcMetrics),
	)

	sampler := geo.NewSampler(params.Position,
		geo.WithRequestTimeout(cfg.SampleTimeout),
		geo.WithLogger(log),
		geo.WithMetrics(geometrics.New(a.Registry)),
	)

	a.Coordinator = coordinator.New(
		coordinator.WithDefaultCooldown(cfg.CooldownDefault),
		coordinator.WithCooldowns(cooldownTable(cfg.Cooldowns)),
		coordinator.WithLogger(log),
		coordinator.WithMetrics(coordmetrics.New(a.Registry)),
	)

	opts := []service.Option{
		service.WithAudit(a.Audit),
		service.WithNetworkStatus(a.Monitor),
		service.WithMaxRetries(cfg.RetryCount),
		service.WithSampling(cfg.SampleCount, cfg.SampleInterval),
		service.WithAppVersion(cfg.AppVersion),
		service.WithLogger(log),
		service.WithMetrics(checkinmetrics.New(a.Registry)),
	}
	if params.Confirmer != nil {
		opts = append(opts, service.WithConfirmer(params.Confirmer))
	}
	if params.Progress != nil {
		opts = append(opts, service.WithProgressObserver(progressPrinter(params.Progress)))
	}
	a.Service = service.New(scheduler, a.Resolver, sampler, a.Coordinator, opts...)
	a.onClose(func() error {
		a.Service.Wait()
		return nil
	})
	return nil
}

// identityStore puts the durable tier in SQL and the session tier in
// process memory. The redundant tier lives in Redis when configured.
func (a *App) identityStore(ctx context.Context, db *sql.DB) (*store.Store, error) {
	durable := sqltier.New(db)
	if err := durable.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("identity schema: %w", err)
	}

	var redundant store.Tier = memtier.New()
	client, err := platformredis.New(ctx, platformredis.DefaultConfig(a.Config.RedisURL))
	switch {
	case err != nil:
		a.Logger.WarnContext(ctx, "redis unavailable, redundant tier kept in memory", "error", err)
	case client != nil:
		redundant = redistier.New(client.Client)
		a.onClose(client.Close)
	}

	return store.New(durable, memtier.New(), redundant,
		store.WithKey(a.Config.DeviceIDKey),
		store.WithLogger(a.Logger),
	), nil
}

// auditStore prefers the Kafka stream and falls back to the SQL table.
func (a *App) auditStore(ctx context.Context, db *sql.DB) (audit.Store, error) {
	if brokers := a.Config.Brokers(); len(brokers) > 0 {
		ks, err := kafka.New(brokers, a.Config.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error {
			ks.Close()
			return nil
		})
		if err := ks.EnsureTopic(ctx, auditPartitions, 1); err != nil {
			a.Logger.WarnContext(ctx, "audit topic not ensured", "topic", ks.Topic(), "error", err)
		}
		return ks, nil
	}

	ss := sqlstore.New(db)
	if err := ss.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return ss, nil
}

func cooldownTable(in map[string]time.Duration) map[coordinator.Trigger]time.Duration {
	out := make(map[coordinator.Trigger]time.Duration, len(in))
	for name, d := range in {
		out[coordinator.Trigger(name)] = d
	}
	return out
}

func progressPrinter(w io.Writer) rpcmodels.ProgressObserver {
	return func(function string, state rpcmodels.RetryState) {
		fmt.Fprintf(w, "network unstable, retrying %s (attempt %d in %s)\n",
			function, state.Attempt, state.NextDelay.Round(time.Millisecond))
	}
}

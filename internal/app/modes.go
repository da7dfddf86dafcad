package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/predictd/internal/domain"
	"github.com/openpredict/predictd/internal/ledger"
	"github.com/openpredict/predictd/internal/projector"
	"github.com/openpredict/predictd/internal/server"
	"github.com/openpredict/predictd/internal/server/handler"
	"github.com/openpredict/predictd/internal/server/ws"
	"github.com/openpredict/predictd/internal/service"
)

// archiveLockKey guards the settlement sweep so concurrent archive runs
// cannot double-upload the same month's archive.
const archiveLockKey = "archive:settled"

// ServeMode runs the full ledger stack against Postgres and Redis: engine,
// projector, HTTP API and WebSocket hub.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")
	return a.runLedgerStack(ctx, deps)
}

// LiteMode runs the same stack as ServeMode on in-process stores, cache and
// bus. Nothing survives a restart; useful for local development and demos.
func (a *App) LiteMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting lite mode")
	return a.runLedgerStack(ctx, deps)
}

// runLedgerStack wires the engine, projector, services, HTTP server and
// WebSocket hub, then blocks until the context is cancelled or a subsystem
// fails.
func (a *App) runLedgerStack(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	sink := projector.NewSink(a.cfg.Ledger.EventBuffer)
	engineSink := ledger.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		if err := sink.Emit(ctx, ev); err != nil {
			a.logger.WarnContext(ctx, "event dropped",
				slog.String("kind", string(ev.Kind)),
				slog.Uint64("market_id", ev.MarketID),
				slog.String("error", err.Error()),
			)
		}
	})

	engine := ledger.NewEngine(deps.Bank, domain.RealClock(), engineSink, a.logger)
	if a.cfg.Ledger.EscrowAccount != "" {
		escrow, err := domain.NormalizeAccount(a.cfg.Ledger.EscrowAccount)
		if err != nil {
			return fmt.Errorf("app: ledger.escrow_account: %w", err)
		}
		engine.WithEscrowAccount(escrow)
	}

	proj := projector.New(projector.Config{
		Snapshots: engine,
		Events:    deps.EventStore,
		Markets:   deps.MarketStore,
		Positions: deps.PositionStore,
		Cache:     deps.MarketCache,
		Bus:       deps.SignalBus,
		Notifier:  deps.Notifier,
	}, a.logger)
	g.Go(func() error {
		err := proj.Run(ctx, sink.Events())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	marketSvc := service.NewMarketService(
		deps.MarketStore, deps.PositionStore, deps.EventStore, deps.MarketCache, a.logger,
	)
	ledgerSvc := service.NewLedgerService(engine, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimiter:     deps.RateLimiter,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Markets:   handler.NewMarketHandler(marketSvc, ledgerSvc, a.logger),
		Positions: handler.NewPositionHandler(marketSvc, a.logger),
		Estimates: handler.NewEstimateHandler(marketSvc, ledgerSvc, a.logger),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		// Stop HTTP first so no in-flight request can reach the engine,
		// then close the bridge and let the projector drain.
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		sink.Close()
		return err
	})

	return g.Wait()
}

// ArchiveMode performs a one-shot sweep of settled markets into object
// storage and exits. When a lock manager is available the sweep is guarded by
// a distributed lock so overlapping runs (e.g. two cron hosts) cannot race.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires object storage")
	}

	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, archiveLockKey, 10*time.Minute)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "archive sweep already running elsewhere, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("app: acquire archive lock: %w", err)
		}
		defer unlock()
	}

	count, err := deps.Archiver.ArchiveSettled(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("app: archive sweep: %w", err)
	}

	a.logger.InfoContext(ctx, "archive sweep complete",
		slog.Int64("markets_archived", count),
	)
	return nil
}

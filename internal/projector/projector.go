// Package projector consumes ledger events and maintains the read model:
// market and position snapshots in the stores, cache entries, pub/sub
// fan-out, the durable event stream and operator notifications.
package projector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpredict/predictd/internal/domain"
)

// Pub/sub channels and the durable stream fed by the projector.
const (
	ChannelMarkets     = "markets"
	ChannelTrades      = "trades"
	ChannelResolutions = "resolutions"
	ChannelPayouts     = "payouts"

	EventStream = "ledger:events"
)

// Snapshots reads current ledger state after an event has been applied.
type Snapshots interface {
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
	GetPosition(ctx context.Context, marketID uint64, account string) (domain.Position, error)
}

// Notifier delivers operator notifications for selected event types.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Projector drains a ledger event channel and applies each event to every
// read-side surface. Errors on individual surfaces are logged and do not stop
// the loop; the ledger remains the source of truth.
type Projector struct {
	snapshots Snapshots
	events    domain.EventStore
	markets   domain.MarketStore
	positions domain.PositionStore
	cache     domain.MarketCache
	bus       domain.SignalBus
	notifier  Notifier
	logger    *slog.Logger
}

// Config carries the read-side surfaces a Projector writes to. Cache, bus and
// notifier are optional; stores and snapshots are required.
type Config struct {
	Snapshots Snapshots
	Events    domain.EventStore
	Markets   domain.MarketStore
	Positions domain.PositionStore
	Cache     domain.MarketCache
	Bus       domain.SignalBus
	Notifier  Notifier
}

// New creates a Projector.
func New(cfg Config, logger *slog.Logger) *Projector {
	return &Projector{
		snapshots: cfg.Snapshots,
		events:    cfg.Events,
		markets:   cfg.Markets,
		positions: cfg.Positions,
		cache:     cfg.Cache,
		bus:       cfg.Bus,
		notifier:  cfg.Notifier,
		logger:    logger.With(slog.String("component", "projector")),
	}
}

// Run drains the event channel until it closes or the context is cancelled.
func (p *Projector) Run(ctx context.Context, events <-chan domain.Event) error {
	p.logger.InfoContext(ctx, "projector started")
	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "projector stopped", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				p.logger.InfoContext(ctx, "projector stopped", slog.String("reason", "event channel closed"))
				return nil
			}
			p.apply(ctx, ev)
		}
	}
}

// apply projects one event onto every surface. Surfaces fail independently.
func (p *Projector) apply(ctx context.Context, ev domain.Event) {
	log := p.logger.With(
		slog.String("event_id", ev.ID),
		slog.String("kind", string(ev.Kind)),
		slog.Uint64("market_id", ev.MarketID),
		slog.Uint64("seq", ev.Seq),
	)

	if err := p.events.Append(ctx, ev); err != nil {
		log.ErrorContext(ctx, "append event", slog.String("error", err.Error()))
	}

	market, err := p.snapshots.GetMarket(ctx, ev.MarketID)
	if err != nil {
		log.ErrorContext(ctx, "market snapshot", slog.String("error", err.Error()))
		return
	}

	if err := p.markets.Upsert(ctx, market); err != nil {
		log.ErrorContext(ctx, "upsert market", slog.String("error", err.Error()))
	}

	if account := positionAccount(ev); account != "" {
		pos, err := p.snapshots.GetPosition(ctx, ev.MarketID, account)
		if err != nil {
			log.ErrorContext(ctx, "position snapshot", slog.String("error", err.Error()))
		} else if err := p.positions.Upsert(ctx, pos); err != nil {
			log.ErrorContext(ctx, "upsert position", slog.String("error", err.Error()))
		}
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, market); err != nil {
			log.WarnContext(ctx, "cache refresh", slog.String("error", err.Error()))
		}
	}

	p.fanOut(ctx, ev, log)
	p.notify(ctx, ev, market)
}

// positionAccount returns the account whose position an event touches, or ""
// when the event leaves positions unchanged.
func positionAccount(ev domain.Event) string {
	if ev.SharesPurchased != nil {
		return ev.SharesPurchased.Buyer
	}
	return ""
}

// fanOut publishes the event to its pub/sub channel and the durable stream.
func (p *Projector) fanOut(ctx context.Context, ev domain.Event, log *slog.Logger) {
	if p.bus == nil {
		return
	}

	payload, err := ev.Marshal()
	if err != nil {
		log.ErrorContext(ctx, "marshal event", slog.String("error", err.Error()))
		return
	}

	if err := p.bus.Publish(ctx, channelFor(ev.Kind), payload); err != nil {
		log.WarnContext(ctx, "publish event", slog.String("error", err.Error()))
	}
	if err := p.bus.StreamAppend(ctx, EventStream, payload); err != nil {
		log.WarnContext(ctx, "stream append", slog.String("error", err.Error()))
	}
}

func channelFor(kind domain.EventKind) string {
	switch kind {
	case domain.EventMarketCreated:
		return ChannelMarkets
	case domain.EventSharesPurchased:
		return ChannelTrades
	case domain.EventMarketResolved:
		return ChannelResolutions
	case domain.EventPayoutDistributed:
		return ChannelPayouts
	default:
		return ChannelMarkets
	}
}

// notify sends operator notifications for market lifecycle events.
func (p *Projector) notify(ctx context.Context, ev domain.Event, market domain.Market) {
	if p.notifier == nil {
		return
	}

	switch {
	case ev.MarketCreated != nil:
		title := fmt.Sprintf("Market #%d created", ev.MarketID)
		msg := fmt.Sprintf("%q by %s, trading until %s",
			market.Question, ev.MarketCreated.Creator,
			ev.MarketCreated.EndTime.UTC().Format(time.RFC3339))
		if err := p.notifier.Notify(ctx, string(ev.Kind), title, msg); err != nil {
			p.logger.WarnContext(ctx, "notify", slog.String("error", err.Error()))
		}
	case ev.MarketResolved != nil:
		outcome := "NO"
		if ev.MarketResolved.Outcome {
			outcome = "YES"
		}
		title := fmt.Sprintf("Market #%d resolved %s", ev.MarketID, outcome)
		msg := fmt.Sprintf("%q resolved by %s", market.Question, ev.MarketResolved.Resolver)
		if err := p.notifier.Notify(ctx, string(ev.Kind), title, msg); err != nil {
			p.logger.WarnContext(ctx, "notify", slog.String("error", err.Error()))
		}
	}
}

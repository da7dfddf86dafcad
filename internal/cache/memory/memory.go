// Package memory provides in-process implementations of the cache and signal
// bus interfaces for single-node deployments and tests.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/openpredict/predictd/internal/domain"
)

// MarketCache is a mutex-guarded in-process market snapshot cache.
type MarketCache struct {
	mu      sync.RWMutex
	markets map[uint64]domain.Market
}

// NewMarketCache creates an empty MarketCache.
func NewMarketCache() *MarketCache {
	return &MarketCache{markets: make(map[uint64]domain.Market)}
}

// Set stores a market snapshot.
func (mc *MarketCache) Set(_ context.Context, market domain.Market) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.markets[market.ID] = market
	return nil
}

// Get retrieves a market snapshot, returning domain.ErrNotFound on a miss.
func (mc *MarketCache) Get(_ context.Context, id uint64) (domain.Market, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	m, ok := mc.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// Invalidate removes a market snapshot.
func (mc *MarketCache) Invalidate(_ context.Context, id uint64) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.markets, id)
	return nil
}

// SignalBus is an in-process pub/sub bus with a bounded replay buffer per
// stream. Subscribers that fall behind have messages dropped rather than
// blocking publishers.
type SignalBus struct {
	mu      sync.Mutex
	subs    map[string][]chan []byte
	streams map[string][]domain.StreamMessage
	nextID  uint64
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[string][]chan []byte),
		streams: make(map[string][]domain.StreamMessage),
	}
}

// Publish delivers a payload to every subscriber of the channel.
func (sb *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	for _, ch := range sb.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to the named channel.
// The subscription ends and the channel closes when the context is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	sb.mu.Lock()
	sb.subs[channel] = append(sb.subs[channel], ch)
	sb.mu.Unlock()

	go func() {
		<-ctx.Done()

		sb.mu.Lock()
		subs := sb.subs[channel]
		for i, c := range subs {
			if c == ch {
				sb.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		sb.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

const streamCap = 10000

// StreamAppend appends a payload to a named stream, trimming the oldest
// entries past the stream capacity.
func (sb *SignalBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.nextID++
	msgs := append(sb.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatUint(sb.nextID, 10),
		Payload: payload,
	})
	if len(msgs) > streamCap {
		msgs = msgs[len(msgs)-streamCap:]
	}
	sb.streams[stream] = msgs
	return nil
}

// StreamRead returns up to count messages with IDs greater than lastID.
// Use "0" as lastID to read from the beginning.
func (sb *SignalBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	last, err := strconv.ParseUint(lastID, 10, 64)
	if err != nil {
		last = 0
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	var out []domain.StreamMessage
	for _, msg := range sb.streams[stream] {
		id, _ := strconv.ParseUint(msg.ID, 10, 64)
		if id <= last {
			continue
		}
		out = append(out, msg)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketCache = (*MarketCache)(nil)
	_ domain.SignalBus   = (*SignalBus)(nil)
)

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpredict/predictd/internal/domain"
)

// multipartThreshold switches the archive upload to the multipart manager
// once the serialized payload exceeds 8 MiB.
const multipartThreshold = 8 * 1024 * 1024

// settledMarketRecord is one JSONL line in a settlement archive: the final
// market snapshot, the closing positions, and the full event history.
type settledMarketRecord struct {
	Market    domain.Market     `json:"market"`
	Positions []domain.Position `json:"positions"`
	Events    []domain.Event    `json:"events"`
}

// Archiver implements domain.Archiver by collecting settled markets from the
// read model, serializing them to JSONL and uploading the result to object
// storage under archive/markets/YYYY-MM.jsonl.
//
// Deletion of archived rows from the primary store is intentionally NOT
// performed here; that is a separate, explicit step after the archive has
// been verified.
type Archiver struct {
	writer    domain.BlobWriter
	markets   domain.MarketStore
	positions domain.PositionStore
	events    domain.EventStore
	logger    *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(
	writer domain.BlobWriter,
	markets domain.MarketStore,
	positions domain.PositionStore,
	events domain.EventStore,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:    writer,
		markets:   markets,
		positions: positions,
		events:    events,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSettled archives every market resolved strictly before the cutoff
// and returns the number of markets archived. Markets whose positions or
// events cannot be read are skipped with a warning rather than failing the
// whole sweep.
func (a *Archiver) ArchiveSettled(ctx context.Context, before time.Time) (int64, error) {
	settled, err := a.markets.ListResolvedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settled query: %w", err)
	}
	if len(settled) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	var count int64
	for _, m := range settled {
		positions, err := a.positions.ListByMarket(ctx, m.ID)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping market: positions query failed",
				slog.Uint64("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		events, err := a.events.ListByMarket(ctx, m.ID)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping market: events query failed",
				slog.Uint64("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		rec := settledMarketRecord{
			Market:    m,
			Positions: positions,
			Events:    events,
		}
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("s3blob: encode market %d: %w", m.ID, err)
		}
		count++
	}

	if count == 0 {
		return 0, nil
	}

	path := archivePath(before)
	if buf.Len() > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf.Bytes()), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settled upload: %w", err)
	}

	a.logger.InfoContext(ctx, "settled markets archived",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before),
	)

	return count, nil
}

// archivePath builds the object key for a settlement archive, partitioned by
// the year-month of the cutoff time:
//
//	archive/markets/2026-09.jsonl
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/markets/%s.jsonl", before.Format("2006-01"))
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)

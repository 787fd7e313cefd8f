package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/proctor-live/internal/metrics"
	"github.com/rickgao/proctor-live/internal/router"
)

const insertSQL = `
	INSERT INTO channel_events (id, event_type, payload, received_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING
`

// Config holds writer settings.
type Config struct {
	EventTypes    []string      // Event types to archive
	BatchSize     int           // Max rows per insert batch
	FlushInterval time.Duration // Max time a record waits in the buffer
	BufferSize    int           // Records held while the database is slow
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    1000,
	}
}

// Record is one archived event.
type Record struct {
	ID         uuid.UUID
	EventType  string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// BatchSender sends a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Source delivers events to registered consumers.
type Source interface {
	On(eventType string, h router.Handler) router.Unsubscribe
}

// WriterStats contains runtime statistics.
type WriterStats struct {
	Received  int64
	Dropped   int64 // rejected because the buffer was full
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// Writer archives events from a Source.
type Writer struct {
	cfg     Config
	db      BatchSender
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	input *Buffer[Record]

	unsubMu sync.Mutex
	unsubs  []router.Unsubscribe

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   WriterStats
}

// NewWriter creates a Writer. m may be nil.
func NewWriter(cfg Config, db BatchSender, logger *slog.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = defaults.BufferSize
	}

	return &Writer{
		cfg:     cfg,
		db:      db,
		logger:  logger.With("component", "archive"),
		metrics: m,
		now:     time.Now,
		input:   NewBuffer[Record](cfg.BufferSize),
	}
}

// Attach registers a consumer on src for every configured event type.
func (w *Writer) Attach(src Source) {
	w.unsubMu.Lock()
	defer w.unsubMu.Unlock()

	for _, eventType := range w.cfg.EventTypes {
		w.unsubs = append(w.unsubs, src.On(eventType, w.consumer(eventType)))
	}
}

// consumer copies the payload into the buffer. It never fails the dispatch.
func (w *Writer) consumer(eventType string) router.Handler {
	return func(payload json.RawMessage) error {
		rec := Record{
			ID:         uuid.New(),
			EventType:  eventType,
			Payload:    append(json.RawMessage(nil), payload...),
			ReceivedAt: w.now(),
		}
		if len(rec.Payload) == 0 {
			rec.Payload = json.RawMessage(`{}`)
		}

		ok := w.input.TryPush(rec)

		w.statsMu.Lock()
		if ok {
			w.stats.Received++
		} else {
			w.stats.Dropped++
		}
		w.statsMu.Unlock()

		if !ok {
			w.logger.Warn("archive buffer full, dropping event", "event_type", eventType)
		}
		return nil
	}
}

// Start begins draining the buffer into the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("archive writer started",
		"event_types", w.cfg.EventTypes,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop detaches from the source, stops the loop and flushes what is left.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	w.unsubMu.Lock()
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
	w.unsubMu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
		return ctx.Err()
	}

	// Final flush
	for w.flush(ctx) {
	}

	w.logger.Info("archive writer stopped")
	return nil
}

// Stats returns current statistics.
func (w *Writer) Stats() WriterStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.input.Ready():
			for w.input.Len() >= w.cfg.BatchSize {
				w.flush(w.ctx)
			}
		case <-ticker.C:
			for w.flush(w.ctx) {
			}
		}
	}
}

// flush writes one batch. It reports whether a full batch was written, so
// callers loop until the buffer is below the batch size.
func (w *Writer) flush(ctx context.Context) bool {
	records := w.input.Drain(w.cfg.BatchSize)
	if len(records) == 0 {
		return false
	}

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, records)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(records))
		w.statsMu.Lock()
		w.stats.Errors++
		w.statsMu.Unlock()
		w.metrics.ArchiveFailed()
		return false
	}

	inserted := len(records) - conflicts
	w.statsMu.Lock()
	w.stats.Inserts += int64(inserted)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.statsMu.Unlock()
	w.metrics.ArchiveInserted(inserted)

	w.logger.Debug("flushed events",
		"count", len(records),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return len(records) == w.cfg.BatchSize
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, records []Record) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(insertSQL, r.ID, r.EventType, r.Payload, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}

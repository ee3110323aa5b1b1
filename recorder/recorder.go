package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/thecheetahcat/sockstream/codec"
	"github.com/thecheetahcat/sockstream/stream"
)

// Config configures a Recorder.
type Config struct {
	Table         string        // Target table name
	BatchSize     int           // Rows per batch insert
	FlushInterval time.Duration // Max time a row waits before flushing
	BufferSize    int           // Intake channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "stream_messages",
		BatchSize:     1000,
		FlushInterval: 1 * time.Second,
		BufferSize:    10000,
	}
}

// Metrics counts recorder activity.
type Metrics struct {
	Records int64 // Messages accepted into the intake buffer
	Drops   int64 // Messages dropped because the buffer was full
	Inserts int64 // Rows written to the database
	Flushes int64 // Batches flushed
	Errors  int64 // Failed flushes
}

// batchSender is the slice of pgxpool.Pool the recorder needs.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// row is one message staged for insert.
type row struct {
	ReceivedAt time.Time
	Payload    []byte
}

// Recorder consumes decoded messages and batch-writes them to the database.
// Each Recorder instance tags its rows with a fresh run ID.
type Recorder struct {
	cfg    Config
	logger *slog.Logger

	db    batchSender
	codec codec.Codec
	runID uuid.UUID

	intake chan row

	// Batching
	batch       []row
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// New creates a Recorder writing through db (normally a *pgxpool.Pool).
func New(cfg Config, db batchSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = "stream_messages"
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1000
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 10000
	}

	return &Recorder{
		cfg:    cfg,
		logger: logger,
		db:     db,
		codec:  codec.JSON{},
		runID:  uuid.New(),
		intake: make(chan row, cfg.BufferSize),
		batch:  make([]row, 0, cfg.BatchSize),
	}
}

// Callback returns a message callback feeding this recorder. It never
// blocks the listen loop: when the intake buffer is full the message is
// dropped and counted.
func (r *Recorder) Callback() stream.MessageCallback {
	return func(msg codec.Message) {
		payload, err := r.codec.Encode(msg)
		if err != nil {
			r.logger.Error("encode message for recording", "error", err)
			return
		}

		select {
		case r.intake <- row{ReceivedAt: time.Now(), Payload: payload}:
			r.batchMu.Lock()
			r.metrics.Records++
			r.batchMu.Unlock()
		default:
			r.batchMu.Lock()
			r.metrics.Drops++
			r.batchMu.Unlock()
			r.logger.Warn("recorder buffer full, dropping message")
		}
	}
}

// Start begins consuming messages and writing to the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushTicker = time.NewTicker(r.cfg.FlushInterval)

	r.wg.Add(1)
	go r.consumeLoop()

	r.wg.Add(1)
	go r.flushLoop()

	r.logger.Info("recorder started",
		"run_id", r.runID,
		"table", r.cfg.Table,
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts the recorder down, flushing what remains.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping recorder")

	if r.cancel != nil {
		r.cancel()
	}
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("recorder stop timed out")
	}

	// Final flush
	r.drainIntake()
	r.flush(context.Background())

	return nil
}

// Stats returns current metrics.
func (r *Recorder) Stats() Metrics {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	return r.metrics
}

// consumeLoop moves rows from the intake channel into the batch.
func (r *Recorder) consumeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg := <-r.intake:
			r.add(msg)
		}
	}
}

// flushLoop periodically flushes the batch.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.flushTicker.C:
			r.flush(r.ctx)
		}
	}
}

// add stages a row and flushes when the batch is full.
func (r *Recorder) add(msg row) {
	r.batchMu.Lock()
	r.batch = append(r.batch, msg)
	shouldFlush := len(r.batch) >= r.cfg.BatchSize
	r.batchMu.Unlock()

	if shouldFlush {
		r.flush(r.ctx)
	}
}

// drainIntake stages whatever is still queued, for the final flush.
func (r *Recorder) drainIntake() {
	for {
		select {
		case msg := <-r.intake:
			r.batchMu.Lock()
			r.batch = append(r.batch, msg)
			r.batchMu.Unlock()
		default:
			return
		}
	}
}

// flush writes the current batch to the database.
func (r *Recorder) flush(ctx context.Context) {
	r.batchMu.Lock()
	if len(r.batch) == 0 {
		r.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := r.batch
	r.batch = make([]row, 0, r.cfg.BatchSize)
	r.batchMu.Unlock()

	start := time.Now()

	if err := r.batchInsert(ctx, batch); err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(batch))
		r.batchMu.Lock()
		r.metrics.Errors++
		r.batchMu.Unlock()
		return
	}

	r.batchMu.Lock()
	r.metrics.Inserts += int64(len(batch))
	r.metrics.Flushes++
	r.batchMu.Unlock()

	r.logger.Debug("flushed messages",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (r *Recorder) batchInsert(ctx context.Context, rows []row) error {
	batch := &pgx.Batch{}
	sql := `INSERT INTO ` + r.cfg.Table + ` (run_id, received_at, payload) VALUES ($1, $2, $3)`
	for _, msg := range rows {
		batch.Queue(sql, r.runID, msg.ReceivedAt, msg.Payload)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

package recorder

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thecheetahcat/sockstream/codec"
)

// fakeSender records queued batches instead of talking to Postgres.
type fakeSender struct {
	mu      sync.Mutex
	batches []*pgx.Batch
	err     error
}

func (f *fakeSender) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	f.mu.Lock()
	f.batches = append(f.batches, b)
	f.mu.Unlock()
	return &fakeResults{n: b.Len(), err: f.err}
}

func (f *fakeSender) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeSender) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, b := range f.batches {
		total += b.Len()
	}
	return total
}

// fakeResults satisfies pgx.BatchResults for the Exec calls the recorder makes.
type fakeResults struct {
	n   int
	err error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, pgx.ErrNoRows }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRecorder_FlushOnBatchSize(t *testing.T) {
	db := &fakeSender{}
	rec := New(Config{
		BatchSize:     3,
		FlushInterval: time.Hour, // ticker must not fire
		BufferSize:    16,
	}, db, testLogger())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rec.Stop(context.Background())

	cb := rec.Callback()
	for i := 0; i < 3; i++ {
		cb(codec.Message{"seq": i})
	}

	waitFor(t, time.Second, func() bool { return db.batchCount() == 1 })

	if got := db.rowCount(); got != 3 {
		t.Errorf("rows queued = %d, want 3", got)
	}

	stats := rec.Stats()
	if stats.Records != 3 {
		t.Errorf("Records = %d, want 3", stats.Records)
	}
	if stats.Inserts != 3 {
		t.Errorf("Inserts = %d, want 3", stats.Inserts)
	}
	if stats.Flushes != 1 {
		t.Errorf("Flushes = %d, want 1", stats.Flushes)
	}
}

func TestRecorder_FlushOnInterval(t *testing.T) {
	db := &fakeSender{}
	rec := New(Config{
		BatchSize:     1000, // never reached
		FlushInterval: 20 * time.Millisecond,
		BufferSize:    16,
	}, db, testLogger())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rec.Stop(context.Background())

	rec.Callback()(codec.Message{"type": "tick"})

	waitFor(t, time.Second, func() bool { return db.batchCount() >= 1 })

	if got := db.rowCount(); got != 1 {
		t.Errorf("rows queued = %d, want 1", got)
	}
}

func TestRecorder_FinalFlushOnStop(t *testing.T) {
	db := &fakeSender{}
	rec := New(Config{
		BatchSize:     1000,
		FlushInterval: time.Hour,
		BufferSize:    16,
	}, db, testLogger())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cb := rec.Callback()
	for i := 0; i < 5; i++ {
		cb(codec.Message{"seq": i})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rec.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := db.rowCount(); got != 5 {
		t.Errorf("rows queued = %d, want 5 after final flush", got)
	}
}

func TestRecorder_DropsWhenBufferFull(t *testing.T) {
	db := &fakeSender{}
	rec := New(Config{
		BatchSize:     1000,
		FlushInterval: time.Hour,
		BufferSize:    2,
	}, db, testLogger())
	// Not started: nothing drains the intake channel.

	cb := rec.Callback()
	for i := 0; i < 5; i++ {
		cb(codec.Message{"seq": i})
	}

	stats := rec.Stats()
	if stats.Records != 2 {
		t.Errorf("Records = %d, want 2", stats.Records)
	}
	if stats.Drops != 3 {
		t.Errorf("Drops = %d, want 3", stats.Drops)
	}
}

func TestRecorder_InsertErrorCounted(t *testing.T) {
	db := &fakeSender{err: pgx.ErrTxClosed}
	rec := New(Config{
		BatchSize:     1,
		FlushInterval: time.Hour,
		BufferSize:    16,
	}, db, testLogger())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rec.Stop(context.Background())

	rec.Callback()(codec.Message{"type": "tick"})

	waitFor(t, time.Second, func() bool { return rec.Stats().Errors == 1 })

	stats := rec.Stats()
	if stats.Inserts != 0 {
		t.Errorf("Inserts = %d, want 0 after failed flush", stats.Inserts)
	}
}

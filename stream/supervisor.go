package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/thecheetahcat/sockstream/codec"
	"github.com/thecheetahcat/sockstream/transport"
)

// Supervisor maintains one long-lived stream connection. It is the sole
// owner and mutator of the session and its connection state.
type Supervisor struct {
	cfg      Config
	factory  transport.Factory
	codec    codec.Codec
	strategy Strategy
	logger   *slog.Logger

	// Serializes reconnect sequences: disconnect, pause, start. A reconnect
	// request arriving while another is in flight blocks until it completes,
	// then proceeds against the now-current state.
	reconnectMu sync.Mutex

	// Session and state ownership.
	mu         sync.Mutex
	sess       *session
	state      State
	generation uint64

	running atomic.Bool
	ticks   atomic.Int64 // watchdog ticks since the session became connected

	cbMu              sync.RWMutex
	callback          MessageCallback
	reconnectCallback ReconnectCallback

	// Lifetime of the supervisor between Start and stop; parent of every
	// session context.
	ctx    context.Context
	cancel context.CancelFunc

	// Timed waits go through here so tests can observe them.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Supervisor for cfg.URL. Zero config fields take defaults;
// a malformed URL is the only construction-time failure.
func New(cfg Config, opts ...Option) (*Supervisor, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, ErrBadURL
	}

	cfg.applyDefaults()

	s := &Supervisor{
		cfg:    cfg,
		codec:  codec.JSON{},
		logger: slog.Default(),
		sleep:  sleepCtx,
	}
	s.callback = func(msg codec.Message) {
		s.logger.Info("message received", "message", msg)
	}
	s.reconnectCallback = func() {
		s.logger.Info("reconnected")
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.factory == nil {
		s.factory = transport.NewFactory(transport.DefaultConfig(cfg.URL), s.logger)
	}

	return s, nil
}

// Start connects and spawns the listener. It blocks until the initial
// connection is established (retrying per the backoff policy) and returns
// once the listener is running; it does not wait for the connection's
// lifetime. Calling Start while already running is an error.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.setState(Connecting)

	if err := s.startSession(ctx); err != nil {
		s.cancel()
		s.Disconnect() // tear down a half-started session (strategy hook failed)
		s.running.Store(false)
		s.setState(Disconnected)
		return err
	}

	return nil
}

// Run is the watchdog loop: one tick per TickInterval while running. When
// the elapsed session time exceeds RunTime it forces a full reconnect and
// resets the timer. When the running flag clears (or ctx is cancelled) it
// disconnects once and returns. Run the loop on its own goroutine, or use
// Spawn.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	threshold := int64(s.cfg.RunTime / s.cfg.TickInterval)

	for s.running.Load() {
		select {
		case <-ctx.Done():
			s.logger.Info("watchdog cancelled")
			s.running.Store(false)
		case <-ticker.C:
			if s.ticks.Add(1) > threshold {
				s.handleExpiredRunTime(ctx)
			}
		}
	}

	// Controlled shutdown: stop any in-flight connect, then tear down the
	// session under the reconnect lock so a racing reconnect cannot install
	// a new session behind us.
	if s.cancel != nil {
		s.cancel()
	}
	s.reconnectMu.Lock()
	s.setState(Stopping)
	s.Disconnect()
	s.setState(Disconnected)
	s.reconnectMu.Unlock()
}

// Spawn runs the watchdog loop on a new goroutine and returns its handle.
func (s *Supervisor) Spawn(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		s.Run(ctx)
	}()
	return t
}

// StopStream clears the running flag, cancels the watchdog task, and waits
// for it to finish tearing the session down.
func (s *Supervisor) StopStream(ctx context.Context, t *Task) error {
	s.running.Store(false)

	if t != nil {
		t.cancel()
		select {
		case <-t.done:
			s.logger.Info("stream task cancelled")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Info("stream stopped", "running", s.running.Load())
	return nil
}

// SendMessage encodes and writes msg if a session is currently open.
// Sending while disconnected is deliberately a silent no-op: callers that
// need delivery guarantees must check state or retry externally.
func (s *Supervisor) SendMessage(msg codec.Message) error {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil || !sess.tr.IsOpen() {
		s.logger.Debug("send skipped, no open session")
		return nil
	}

	data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	return sess.tr.WriteMessage(data)
}

// Reconnect tears the current session down and establishes a new one:
// disconnect, a short pause, connect, respawn the listener. The whole
// sequence is atomic with respect to other Reconnect calls. On success the
// reconnect callback fires. A no-op once the supervisor has stopped.
func (s *Supervisor) Reconnect(ctx context.Context) error {
	s.logger.Info("reconnect requested")

	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	if !s.running.Load() {
		s.logger.Info("reconnect skipped, supervisor stopped")
		return nil
	}

	s.setState(Reconnecting)
	s.Disconnect()

	if err := s.sleep(ctx, s.cfg.ReconnectPause); err != nil {
		return err
	}

	if err := s.startSession(ctx); err != nil {
		return err
	}
	s.logger.Info("reconnected to stream", "url", s.cfg.URL)

	s.cbMu.RLock()
	rcb := s.reconnectCallback
	s.cbMu.RUnlock()
	if rcb != nil {
		rcb()
	}

	return nil
}

// Disconnect cancels the listener, closes the transport, and awaits the
// listener's termination before clearing the session. Idempotent: with no
// active session it only logs.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()

	if sess == nil {
		s.logger.Debug("disconnect with no active session")
		return
	}

	sess.cancel()
	sess.tr.Close()
	<-sess.done

	s.logger.Info("disconnected from stream", "session", sess.id)
}

// AddCallback replaces the message callback. Takes effect on the next
// inbound message.
func (s *Supervisor) AddCallback(cb MessageCallback) {
	if cb == nil {
		return
	}
	s.cbMu.Lock()
	s.callback = cb
	s.cbMu.Unlock()
}

// AddReconnectCallback replaces the reconnect callback. Takes effect on the
// next successful reconnect.
func (s *Supervisor) AddReconnectCallback(cb ReconnectCallback) {
	if cb == nil {
		return
	}
	s.cbMu.Lock()
	s.reconnectCallback = cb
	s.cbMu.Unlock()
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns how long the current session has been connected, at
// watchdog-tick granularity.
func (s *Supervisor) Elapsed() time.Duration {
	return time.Duration(s.ticks.Load()) * s.cfg.TickInterval
}

// startSession connects (blocking until success), installs a fresh session,
// spawns its listener, and invokes the strategy's start hook. The caller
// guarantees any prior session is already torn down.
func (s *Supervisor) startSession(ctx context.Context) error {
	tr, err := s.connect(ctx)
	if err != nil {
		return err
	}

	sessCtx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	s.generation++
	sess := &session{
		id:         uuid.New(),
		generation: s.generation,
		tr:         tr,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	s.sess = sess
	s.state = Connected
	s.mu.Unlock()

	s.ticks.Store(0)

	go s.listen(sessCtx, sess)

	s.logger.Info("session started",
		"session", sess.id,
		"generation", sess.generation,
	)

	if s.strategy != nil {
		if err := s.strategy.OnStart(sessCtx, s); err != nil {
			return fmt.Errorf("strategy start: %w", err)
		}
	}

	return nil
}

// connect dials until it succeeds, sleeping RetryDelay * BackoffFactor and
// doubling the factor after every failure. There is no attempt limit: the
// only way out without a connection is ctx cancellation.
func (s *Supervisor) connect(ctx context.Context) (transport.Transport, error) {
	bo := newBackoff(s.cfg.RetryDelay, s.cfg.BackoffFactor, s.cfg.MaxRetryDelay)

	for {
		tr := s.factory()
		err := tr.Connect(ctx)
		if err == nil {
			return tr, nil
		}

		wait := bo.NextBackOff()
		s.logger.Error("connection failed",
			"url", s.cfg.URL,
			"error", err,
			"retry_in", wait,
		)

		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// listen pulls frames one at a time while the transport reports itself
// open. Any failure (read, decode, or strategy error) is connection-fatal
// and triggers a single reconnect. A read unblocked by a deliberate close
// (session context cancelled) is the expected cancellation signal and ends
// the loop quietly.
func (s *Supervisor) listen(ctx context.Context, sess *session) {
	defer close(sess.done)

	for sess.tr.IsOpen() {
		frame, err := sess.tr.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("listener cancelled", "session", sess.id)
				return
			}
			s.triggerReconnect(sess, err)
			return
		}

		msg, err := s.codec.Decode(frame)
		if err != nil {
			// A malformed frame takes the whole connection down.
			s.triggerReconnect(sess, err)
			return
		}

		if err := s.handleMessage(ctx, msg); err != nil {
			s.triggerReconnect(sess, err)
			return
		}
	}
}

// triggerReconnect logs a listen failure and spawns the reconnect on its
// own goroutine so this listener can exit and be awaited by Disconnect.
func (s *Supervisor) triggerReconnect(sess *session, err error) {
	s.logger.Error("listen failed",
		"session", sess.id,
		"generation", sess.generation,
		"error", err,
	)

	go func() {
		if err := s.Reconnect(s.ctx); err != nil {
			s.logger.Error("reconnect failed", "error", err)
		}
	}()
}

// handleMessage fans a decoded message out: strategy hook first, then the
// message callback.
func (s *Supervisor) handleMessage(ctx context.Context, msg codec.Message) error {
	if s.strategy != nil {
		if err := s.strategy.OnMessage(ctx, s, msg); err != nil {
			return fmt.Errorf("strategy message: %w", err)
		}
	}

	s.cbMu.RLock()
	cb := s.callback
	s.cbMu.RUnlock()

	cb(msg)
	return nil
}

// handleExpiredRunTime forces a reconnect after RunTime and zeroes the
// watchdog timer, logging the value before and after the reset.
func (s *Supervisor) handleExpiredRunTime(ctx context.Context) {
	elapsed := s.Elapsed()

	if err := s.Reconnect(ctx); err != nil {
		s.logger.Error("scheduled reconnect failed", "error", err)
		return
	}

	s.logger.Info("scheduled reconnect after run time expiry",
		"run_time", s.cfg.RunTime,
		"elapsed", elapsed,
	)
	s.ticks.Store(0)
	s.logger.Info("watchdog timer reset", "elapsed", s.Elapsed())
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

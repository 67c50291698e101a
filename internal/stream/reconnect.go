package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/marketdata-sdk/internal/metrics"
)

// Option configures a reconnecting client.
type Option func(*options)

type options struct {
	params  ReconnectionParameters
	delay   DelayGenerator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WithParameters sets the reconnection parameters.
func WithParameters(p ReconnectionParameters) Option {
	return func(o *options) {
		o.params = p
	}
}

// WithDelayGenerator sets the source of inter-attempt delays.
func WithDelayGenerator(g DelayGenerator) Option {
	return func(o *options) {
		o.delay = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// reconnector forwards the Client contract to a wrapped client and runs the
// reconnection loop whenever that client reports an unexpected socket close.
type reconnector struct {
	client  Client
	params  ReconnectionParameters
	delay   DelayGenerator
	logger  *slog.Logger
	metrics *metrics.Metrics

	// replay re-issues every desired subscription after re-authentication.
	replay func(ctx context.Context) int

	// Created at wrap time, cancelled by Disconnect or Close, never reset.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closedHandler HandlerID
	stopOnce      sync.Once

	// At most one loop runs at a time. pending records a close signal seen
	// after the running loop re-authenticated.
	mu      sync.Mutex
	running bool
	pending bool
}

func newReconnector(client Client, opts []Option) (*reconnector, error) {
	o := options{
		params: DefaultReconnectionParameters(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.params.Validate(); err != nil {
		return nil, err
	}
	if o.delay == nil {
		o.delay = NewRandomDelay(uint64(time.Now().UnixNano()))
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &reconnector{
		client:  client,
		params:  o.params,
		delay:   o.delay,
		logger:  o.logger.With("component", "reconnect"),
		metrics: o.metrics,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// start hooks the wrapped client's closed signal. Called once the replay
// function is set.
func (r *reconnector) start() {
	r.closedHandler = r.client.SocketClosed().Add(func(struct{}) {
		r.onSocketClosed()
	})
}

// Parameters returns the reconnection parameters in use.
func (r *reconnector) Parameters() ReconnectionParameters {
	return r.params
}

// Connect forwards to the wrapped client.
func (r *reconnector) Connect(ctx context.Context) error {
	return r.client.Connect(ctx)
}

// ConnectAndAuthenticate forwards to the wrapped client.
func (r *reconnector) ConnectAndAuthenticate(ctx context.Context) (AuthStatus, error) {
	return r.client.ConnectAndAuthenticate(ctx)
}

// Disconnect stops reconnection for good and disconnects the wrapped client.
func (r *reconnector) Disconnect(ctx context.Context) error {
	r.stop()
	return r.client.Disconnect(ctx)
}

// Close stops reconnection for good and closes the wrapped client.
func (r *reconnector) Close() error {
	r.stop()
	return r.client.Close()
}

func (r *reconnector) Connected() *Event[AuthStatus]  { return r.client.Connected() }
func (r *reconnector) SocketOpened() *Event[struct{}] { return r.client.SocketOpened() }
func (r *reconnector) SocketClosed() *Event[struct{}] { return r.client.SocketClosed() }
func (r *reconnector) Errors() *Event[error]          { return r.client.Errors() }

// stop removes the closed handler before cancelling, so a close signal racing
// with shutdown cannot start a new loop.
func (r *reconnector) stop() {
	r.stopOnce.Do(func() {
		r.client.SocketClosed().Remove(r.closedHandler)
		r.cancel()
	})
}

// onSocketClosed runs on the event source's goroutine and must not block.
// Signals that arrive while a loop is running do not start another one.
func (r *reconnector) onSocketClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return
	}
	if r.running {
		r.pending = true
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.run()
}

// finish ends a loop. A close signal that arrived after the loop
// re-authenticated starts the next loop in its place.
func (r *reconnector) finish(reconnected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	restart := reconnected && r.pending && r.ctx.Err() == nil
	r.pending = false
	if restart {
		r.wg.Add(1)
		go r.run()
		return
	}
	r.running = false
}

// run is the reconnection loop. It returns after the first authorized
// attempt and its replay; it does not keep counting attempts.
func (r *reconnector) run() {
	reconnected := false
	defer r.wg.Done()
	defer func() { r.finish(reconnected) }()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("reconnect loop panic: %v", p)
			r.logger.Error("reconnect loop aborted", "error", err)
			r.client.Errors().Emit(err)
		}
	}()

	r.metrics.IncReconnectLoop()
	r.logger.Info("socket closed, starting reconnection",
		"max_attempts", r.params.MaxAttempts,
	)

	attempts := 0
	for r.ctx.Err() == nil && attempts < r.params.MaxAttempts {
		wait := r.delay.Next(r.params.MinDelay, r.params.MaxDelay)
		if !sleep(r.ctx, wait) {
			return
		}

		r.logger.Info("attempting reconnection",
			"attempt", attempts+1,
			"delay", wait,
		)

		status, err := r.client.ConnectAndAuthenticate(r.ctx)
		switch {
		case err != nil && r.ctx.Err() != nil:
			return
		case err != nil:
			r.metrics.ObserveAttempt("error")
			r.logger.Warn("reconnection failed",
				"attempt", attempts+1,
				"error", err,
			)
		case status != AuthAuthorized:
			r.metrics.ObserveAttempt(status.String())
			r.logger.Warn("reconnection not authorized",
				"attempt", attempts+1,
				"status", status,
			)
		default:
			r.metrics.ObserveAttempt(status.String())
			r.mu.Lock()
			r.pending = false
			r.mu.Unlock()
			reconnected = true
			replayed := r.replay(r.ctx)
			r.logger.Info("reconnected",
				"attempt", attempts+1,
				"replayed", replayed,
			)
			return
		}

		attempts++
	}

	if r.ctx.Err() == nil {
		r.logger.Warn("reconnection gave up", "attempts", attempts)
	}
}

// replayed records the outcome of one replayed subscribe call. Failures are
// reported through the Errors event and do not stop the replay.
func (r *reconnector) replayed(key string, err error) {
	if err == nil {
		r.metrics.IncReplayed()
		return
	}
	if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
		return
	}
	r.metrics.IncReplayFailure()
	r.logger.Warn("failed to replay subscription", "stream", key, "error", err)
	r.client.Errors().Emit(&ReplayError{Key: key, Err: err})
}

// wait blocks until every running reconnection loop has returned.
func (r *reconnector) wait() {
	r.wg.Wait()
}

// sleep waits for d or until ctx is done. It reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

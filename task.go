package upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/event"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

const unknownUploadError = "unknown upload error"

// Task is one file upload driven by a retry state machine.
//
// A task starts queued, moves to uploading when Start is called, and ends in
// exactly one of success, error or cancelled. Every state change is published
// to the task's observers as a complete snapshot.
//
// Thread Safety: all methods are safe for concurrent use. Observers may call
// back into the task (State, Cancel) from their callback.
type Task struct {
	id        string
	transport uploadtypes.Transport
	intent    *uploadtypes.Intent
	cfg       uploadtypes.TaskConfig
	logger    *slog.Logger
	events    *event.Emitter[uploadtypes.State]
	done      chan struct{}

	mu       sync.Mutex
	state    uploadtypes.State
	abort    context.CancelFunc
	retries  int
	attempts int
	current  int // attempt number in flight, 0 between attempts
	high     int // highest progress seen during the current attempt
	err      error

	// snapshots waiting for delivery, drained by one goroutine at a time
	pending  []uploadtypes.State
	emitting bool
}

// NewTask creates a queued task that uploads intent through transport.
// The retry policy defaults to 2 retries with a 500ms base delay.
func NewTask(
	transport uploadtypes.Transport,
	intent *uploadtypes.Intent,
	opts ...uploadtypes.TaskOption,
) *Task {
	cfg := uploadtypes.TaskConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := uuid.NewString()
	return &Task{
		id:        id,
		transport: transport,
		intent:    intent,
		cfg:       cfg,
		logger:    logger.With(slog.String("task_id", id)),
		events:    event.NewEmitter[uploadtypes.State](logger),
		done:      make(chan struct{}),
		state: uploadtypes.State{
			ID:     id,
			Status: uploadtypes.StatusQueued,
		},
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() string {
	return t.id
}

// Intent returns the upload intent the task was created from.
func (t *Task) Intent() *uploadtypes.Intent {
	return t.intent
}

// State returns a copy of the current snapshot.
func (t *Task) State() uploadtypes.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// Attempts returns the number of transport calls made so far.
func (t *Task) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

// Subscribe registers fn to receive every future snapshot.
// The returned function unsubscribes; calling it twice is harmless.
func (t *Task) Subscribe(fn func(uploadtypes.State)) (unsubscribe func()) {
	return t.events.Subscribe(fn)
}

// Done returns a channel that is closed once the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task reaches a terminal status or ctx is done.
// It returns the final snapshot and the same error Start returns.
func (t *Task) Wait(ctx context.Context) (uploadtypes.State, error) {
	select {
	case <-t.done:
		return t.State(), t.result()
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

// Start runs the upload and blocks until the task reaches a terminal status.
//
// It returns nil on success, an error wrapping errors.ErrCancelled when the
// task was cancelled (through Cancel or ctx), and an error wrapping both
// errors.ErrRetriesExhausted and the last transport error otherwise.
// Calling Start on a task that already left the queued status returns its
// terminal result, or errors.ErrAlreadyStarted while it is still running.
func (t *Task) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.state.Status != uploadtypes.StatusQueued {
		terminal := t.state.Status.IsTerminal()
		t.mu.Unlock()
		if terminal {
			return t.result()
		}
		return errors.NewTaskError("start", t.id, errors.ErrAlreadyStarted)
	}
	t.abort = cancel
	t.applyLocked(func(s *uploadtypes.State) {
		s.Status = uploadtypes.StatusUploading
	})
	t.mu.Unlock()
	t.flush()

	t.logger.Debug("upload started",
		slog.String("file", t.intent.Name()),
		slog.String("folder", t.intent.Folder),
	)

	t.run(ctx)
	return t.result()
}

// Cancel aborts the task. The status becomes cancelled immediately, even if a
// transport call is still in flight; the transport observes the cancelled
// context and is expected to stop on its own. Cancel has no effect on a task
// that already reached success or error.
func (t *Task) Cancel() {
	t.mu.Lock()
	abort := t.abort
	changed := t.applyLocked(func(s *uploadtypes.State) {
		s.Status = uploadtypes.StatusCancelled
	})
	t.mu.Unlock()

	if abort != nil {
		abort()
	}
	if changed {
		t.logger.Info("upload cancelled")
	}
	t.flush()
}

func (t *Task) run(ctx context.Context) {
	delays := newBackoff(t.cfg.BaseDelay)

	for {
		if ctx.Err() != nil {
			t.finishCancelled()
			return
		}

		outcome, err := t.attempt(ctx)
		if err == nil {
			t.finishSuccess(outcome)
			return
		}

		// Cancellation wins over retry classification, even on the last attempt.
		if ctx.Err() != nil {
			t.finishCancelled()
			return
		}

		retry, ok := t.nextRetry()
		if !ok {
			t.finishError(err)
			return
		}

		delay := delays.NextBackOff()
		t.logger.Warn("upload attempt failed, retrying",
			slog.Int("retry", retry),
			slog.Int("max_retries", t.cfg.MaxRetries),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		if !sleep(ctx, delay) {
			t.finishCancelled()
			return
		}
	}
}

// attempt makes one transport call. A panicking transport is reported as a
// failed attempt so it cannot take the scheduler down with it.
func (t *Task) attempt(ctx context.Context) (outcome *uploadtypes.Outcome, err error) {
	t.mu.Lock()
	t.attempts++
	n := t.attempts
	t.current = n
	t.high = 0
	t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			outcome, err = nil, fmt.Errorf("transport panicked: %v", r)
		}
		t.mu.Lock()
		t.current = 0
		t.mu.Unlock()
	}()

	outcome, err = t.transport.Upload(ctx, t.intent, func(percent int) {
		t.reportProgress(n, percent)
	})
	if err == nil && outcome == nil {
		err = stderrors.New("transport returned no outcome")
	}
	return outcome, err
}

// reportProgress records progress for attempt n. Reports from a finished
// attempt or below the attempt's high-water mark are dropped; 100 is
// reserved for success.
func (t *Task) reportProgress(n, percent int) {
	percent = max(0, min(percent, 99))

	t.mu.Lock()
	if n != t.current || percent < t.high || t.state.Status != uploadtypes.StatusUploading {
		t.mu.Unlock()
		return
	}
	t.high = percent
	if percent == t.state.Progress {
		t.mu.Unlock()
		return
	}
	t.applyLocked(func(s *uploadtypes.State) {
		s.Progress = percent
	})
	t.mu.Unlock()
	t.flush()
}

// nextRetry consumes one retry from the budget.
func (t *Task) nextRetry() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.retries >= t.cfg.MaxRetries {
		return t.retries, false
	}
	t.retries++
	return t.retries, true
}

func (t *Task) finishSuccess(outcome *uploadtypes.Outcome) {
	resp := *outcome
	ok := t.update(func(s *uploadtypes.State) {
		s.Status = uploadtypes.StatusSuccess
		s.Progress = 100
		s.Response = &resp
		s.Error = ""
	})
	if ok {
		t.logger.Info("upload succeeded",
			slog.String("url", resp.URL),
			slog.String("provider", resp.Provider),
			slog.Int("attempts", t.Attempts()),
		)
	}
}

func (t *Task) finishError(cause error) {
	msg := cause.Error()
	if msg == "" {
		msg = unknownUploadError
	}
	ok := t.update(func(s *uploadtypes.State) {
		s.Status = uploadtypes.StatusError
		s.Error = msg
		s.Response = nil
		t.err = errors.NewTaskError("start", t.id, fmt.Errorf("%w: %w", errors.ErrRetriesExhausted, cause))
	})
	if ok {
		t.logger.Error("upload failed",
			slog.Int("attempts", t.Attempts()),
			slog.String("error", msg),
		)
	}
}

func (t *Task) finishCancelled() {
	if t.update(func(s *uploadtypes.State) {
		s.Status = uploadtypes.StatusCancelled
	}) {
		t.logger.Info("upload cancelled")
	}
}

// result maps the terminal status to the error Start returns.
func (t *Task) result() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state.Status {
	case uploadtypes.StatusSuccess:
		return nil
	case uploadtypes.StatusError:
		return t.err
	case uploadtypes.StatusCancelled:
		return errors.NewTaskError("start", t.id, errors.ErrCancelled)
	default:
		return errors.NewTaskError("start", t.id, errors.ErrAlreadyStarted)
	}
}

// update is the single entry point for state changes: it merges change into
// the snapshot and delivers the full result to observers.
// It reports false if the task had already reached a terminal status.
func (t *Task) update(change func(*uploadtypes.State)) bool {
	t.mu.Lock()
	ok := t.applyLocked(change)
	t.mu.Unlock()
	t.flush()
	return ok
}

// applyLocked must be called with t.mu held.
func (t *Task) applyLocked(change func(*uploadtypes.State)) bool {
	if t.state.Status.IsTerminal() {
		return false
	}
	change(&t.state)
	t.pending = append(t.pending, t.state.Clone())
	if t.state.Status.IsTerminal() {
		close(t.done)
	}
	return true
}

// flush delivers pending snapshots in order. Only one goroutine delivers at a
// time; concurrent or re-entrant callers leave their snapshots to it.
func (t *Task) flush() {
	t.mu.Lock()
	if t.emitting {
		t.mu.Unlock()
		return
	}
	t.emitting = true
	for len(t.pending) > 0 {
		batch := t.pending
		t.pending = nil
		t.mu.Unlock()
		for _, s := range batch {
			t.events.Emit(s)
		}
		t.mu.Lock()
	}
	t.emitting = false
	t.mu.Unlock()
}

// newBackoff returns delays of base, 2*base, 4*base, ... with no jitter and
// no elapsed-time limit; the retry budget is enforced by the task.
func newBackoff(base time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/b8oost/boost-service/internal/app/metrics"
	"github.com/b8oost/boost-service/internal/app/storage"
	"github.com/b8oost/boost-service/internal/app/system"
	"github.com/b8oost/boost-service/pkg/logger"
)

var _ system.Service = (*Dispatcher)(nil)

const (
	defaultInterval    = 5 * time.Second
	defaultMaxAttempts = 5
	drainBatchSize     = 50
)

// Dispatcher periodically drains the notification outbox and hands pending
// messages to the configured sender. Failures are retried with per-message
// backoff until the attempt budget is exhausted; nothing here ever blocks
// or rolls back the business write that enqueued the message.
type Dispatcher struct {
	store    storage.NotificationStore
	log      *logger.Logger
	interval time.Duration
	maxTries int
	sender   Sender

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	nextAttempt map[string]time.Time
}

// NewDispatcher constructs a lifecycle-managed outbox dispatcher.
func NewDispatcher(store storage.NotificationStore, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewDefault("notification-dispatcher")
	}
	return &Dispatcher{
		store:       store,
		log:         log,
		interval:    defaultInterval,
		maxTries:    defaultMaxAttempts,
		nextAttempt: make(map[string]time.Time),
	}
}

// WithSender configures the delivery channel.
func (d *Dispatcher) WithSender(sender Sender) {
	d.mu.Lock()
	d.sender = sender
	d.mu.Unlock()
}

// WithInterval overrides the polling interval.
func (d *Dispatcher) WithInterval(interval time.Duration) {
	if interval > 0 {
		d.interval = interval
	}
}

func (d *Dispatcher) Name() string { return "notification-dispatcher" }

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.sender == nil {
		d.mu.Unlock()
		d.log.Warn("notification sender not configured; dispatcher disabled")
		return nil
	}
	if d.running {
		d.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				d.tick(runCtx)
			}
		}
	}()

	d.log.Info("notification dispatcher started")
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	d.log.Info("notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	msgs, err := d.store.ListPendingNotifications(ctx, drainBatchSize)
	if err != nil {
		d.log.WithError(err).Warn("notification dispatcher tick failed")
		return
	}

	d.mu.Lock()
	sender := d.sender
	d.mu.Unlock()
	if sender == nil {
		return
	}

	now := time.Now()
	for _, msg := range msgs {
		if !d.shouldAttempt(msg.ID, now) {
			continue
		}

		if err := sender.Send(ctx, msg.ChatID, msg.Text); err != nil {
			metrics.RecordDelivery(false)
			permanent := msg.Attempts+1 >= d.maxTries
			if _, markErr := d.store.MarkNotificationFailed(ctx, msg.ID, err.Error(), permanent); markErr != nil {
				d.log.WithError(markErr).
					WithField("notification_id", msg.ID).
					Warn("mark notification failed")
			}
			if permanent {
				d.log.WithError(err).
					WithField("notification_id", msg.ID).
					WithField("attempts", msg.Attempts+1).
					Warn("notification delivery given up")
				d.clearSchedule(msg.ID)
			} else {
				d.log.WithError(err).
					WithField("notification_id", msg.ID).
					Warn("notification delivery failed; will retry")
				d.scheduleNext(msg.ID)
			}
			continue
		}

		metrics.RecordDelivery(true)
		if _, err := d.store.MarkNotificationSent(ctx, msg.ID); err != nil {
			d.log.WithError(err).
				WithField("notification_id", msg.ID).
				Warn("mark notification sent failed")
		}
		d.clearSchedule(msg.ID)
	}
}

func (d *Dispatcher) shouldAttempt(id string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, ok := d.nextAttempt[id]
	return !ok || now.After(next)
}

func (d *Dispatcher) scheduleNext(id string) {
	d.mu.Lock()
	d.nextAttempt[id] = time.Now().Add(d.interval)
	d.mu.Unlock()
}

func (d *Dispatcher) clearSchedule(id string) {
	d.mu.Lock()
	delete(d.nextAttempt, id)
	d.mu.Unlock()
}

// Drain runs a single dispatch pass synchronously. Used by tests and by the
// shutdown path to flush whatever is deliverable.
func (d *Dispatcher) Drain(ctx context.Context) {
	d.tick(ctx)
}

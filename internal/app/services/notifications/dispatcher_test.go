package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/b8oost/boost-service/internal/app/domain/notification"
	"github.com/b8oost/boost-service/internal/app/storage/memory"
)

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeSender) Send(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSender) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func enqueue(t *testing.T, store *memory.Store, text string) notification.Message {
	t.Helper()
	ctx := context.Background()
	u, err := store.EnsureUser(ctx, 7, "alice")
	require.NoError(t, err)
	msg, err := store.EnqueueNotification(ctx, notification.Message{
		UserID: u.ID,
		ChatID: u.TelegramID,
		Text:   text,
	})
	require.NoError(t, err)
	return msg
}

func TestDrainDeliversPending(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{}

	d := NewDispatcher(store, nil)
	d.WithSender(sender)
	enqueue(t, store, "hello")

	d.Drain(ctx)

	require.Equal(t, []string{"hello"}, sender.delivered())
	pending, err := store.ListPendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDrainRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{}
	sender.fail(errors.New("telegram unreachable"))

	d := NewDispatcher(store, nil)
	d.WithSender(sender)
	d.WithInterval(time.Millisecond)
	msg := enqueue(t, store, "hello")

	d.Drain(ctx)
	require.Empty(t, sender.delivered())

	pending, err := store.ListPendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 1, pending[0].Attempts)
	require.Contains(t, pending[0].LastError, "unreachable")

	// The failed message stays on the queue and goes out once the sender
	// recovers and its backoff window elapses.
	sender.fail(nil)
	time.Sleep(5 * time.Millisecond)
	d.Drain(ctx)

	require.Equal(t, []string{"hello"}, sender.delivered())
	got, err := store.GetNotification(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, notification.StatusSent, got.Status)
	require.False(t, got.SentAt.IsZero())
}

func TestRepeatedFailuresGiveUp(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{}
	sender.fail(errors.New("bad chat id"))

	d := NewDispatcher(store, nil)
	d.WithSender(sender)
	d.WithInterval(time.Millisecond)
	msg := enqueue(t, store, "hello")

	for i := 0; i < defaultMaxAttempts; i++ {
		d.Drain(ctx)
		time.Sleep(5 * time.Millisecond)
	}

	got, err := store.GetNotification(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, notification.StatusFailed, got.Status)
	require.Equal(t, defaultMaxAttempts, got.Attempts)

	pending, err := store.ListPendingNotifications(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestStartWithoutSenderIsNoop(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(memory.New(), nil)

	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Stop(ctx))
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	sender := &fakeSender{}

	d := NewDispatcher(store, nil)
	d.WithSender(sender)
	d.WithInterval(time.Millisecond)
	enqueue(t, store, "hello")

	require.NoError(t, d.Start(ctx))
	deadline := time.Now().Add(2 * time.Second)
	for len(sender.delivered()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, d.Stop(ctx))
	require.Equal(t, []string{"hello"}, sender.delivered())
}

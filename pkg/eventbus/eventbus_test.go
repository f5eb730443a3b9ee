package eventbus

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct{ name string }

func (e testEvent) Name() string { return e.name }

func TestBus_PublishCallsEverySubscriber(t *testing.T) {
	bus := New(zap.NewNop())
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		bus.Subscribe("course.material.published", func(ctx context.Context, event Event) error {
			calls.Add(1)
			return nil
		})
	}
	bus.Subscribe("other", func(ctx context.Context, event Event) error {
		t.Error("чужой подписчик не должен вызываться")
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "course.material.published"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Wait(ctx))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBus_ListenerErrorDoesNotStopOthers(t *testing.T) {
	bus := New(zap.NewNop())
	var ok atomic.Bool

	bus.Subscribe("e", func(context.Context, Event) error { return errors.New("boom") })
	bus.Subscribe("e", func(context.Context, Event) error { ok.Store(true); return nil })

	bus.Publish(context.Background(), testEvent{name: "e"})
	require.NoError(t, bus.Wait(context.Background()))
	assert.True(t, ok.Load())
}

func TestBus_HandlerSurvivesPublisherCancel(t *testing.T) {
	bus := New(zap.NewNop()).WithHandlerTimeout(time.Second)
	var handlerErr atomic.Value

	bus.Subscribe("e", func(ctx context.Context, _ Event) error {
		time.Sleep(20 * time.Millisecond)
		handlerErr.Store(fmtErr(ctx.Err()))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{name: "e"})
	cancel()

	require.NoError(t, bus.Wait(context.Background()))
	assert.Equal(t, "<nil>", handlerErr.Load())
}

func TestBus_WaitHonoursContext(t *testing.T) {
	bus := New(zap.NewNop())
	release := make(chan struct{})
	bus.Subscribe("slow", func(context.Context, Event) error {
		<-release
		return nil
	})
	bus.Publish(context.Background(), testEvent{name: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Wait(context.Background()))
}

func TestBus_WaitOnIdleBusReturnsImmediately(t *testing.T) {
	bus := New(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, bus.Wait(ctx), "без обработчиков Wait не должен смотреть на ctx")
}

func TestBus_TimedOutWaitLeavesNoGoroutines(t *testing.T) {
	bus := New(zap.NewNop())
	release := make(chan struct{})
	bus.Subscribe("slow", func(context.Context, Event) error {
		<-release
		return nil
	})
	bus.Publish(context.Background(), testEvent{name: "slow"})
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		assert.ErrorIs(t, bus.Wait(ctx), context.DeadlineExceeded)
		cancel()
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before)

	close(release)
	require.NoError(t, bus.Wait(context.Background()))
}

func TestBus_BusyAgainAfterIdle(t *testing.T) {
	bus := New(zap.NewNop())
	release := make(chan struct{})
	bus.Subscribe("fast", func(context.Context, Event) error { return nil })
	bus.Subscribe("slow", func(context.Context, Event) error {
		<-release
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "fast"})
	require.NoError(t, bus.Wait(context.Background()))

	bus.Publish(context.Background(), testEvent{name: "slow"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Wait(context.Background()))
}

func fmtErr(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

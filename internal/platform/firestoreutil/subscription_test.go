package firestoreutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscription_StopCancelsAndWaits(t *testing.T) {
	var exited int32
	sub := Start(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		atomic.StoreInt32(&exited, 1)
		return ctx.Err()
	}, func(err error) { t.Errorf("cancellation must not be reported: %v", err) })

	sub.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&exited), "Stop returns after the listener exits")
	sub.Stop()

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}
}

func TestSubscription_ReportsListenerErrors(t *testing.T) {
	boom := errors.New("permission denied")
	got := make(chan error, 1)
	sub := Start(context.Background(), func(ctx context.Context) error {
		return boom
	}, func(err error) { got <- err })

	select {
	case err := <-got:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("error callback not called")
	}
	sub.Stop()
}

func TestSubscription_IgnoresGRPCCancel(t *testing.T) {
	called := make(chan struct{}, 1)
	sub := Start(context.Background(), func(ctx context.Context) error {
		return status.Error(codes.Canceled, "listener closed")
	}, func(error) { called <- struct{}{} })
	sub.Stop()

	select {
	case <-called:
		t.Fatal("codes.Canceled must not be reported")
	default:
	}
}

func TestSubscription_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := Start(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("listener should exit when the parent context is cancelled")
	}
	sub.Stop()
}

func TestNoop(t *testing.T) {
	sub := Noop()
	sub.Stop()
	sub.Stop()
	<-sub.Done()
}

func TestIsCanceledAndNotFound(t *testing.T) {
	assert.True(t, IsCanceled(context.Canceled))
	assert.True(t, IsCanceled(status.Error(codes.Canceled, "x")))
	assert.False(t, IsCanceled(errors.New("x")))
	assert.True(t, IsNotFound(status.Error(codes.NotFound, "missing")))
	assert.False(t, IsNotFound(nil))
}

func TestLimitAndShortID(t *testing.T) {
	ids := make([]string, 40)
	assert.Len(t, Limit(ids, MaxInFilter), 30)
	assert.Len(t, Limit(ids[:3], MaxInFilter), 3)
	assert.Equal(t, "abcdefgh", ShortID("abcdefghijkl"))
	assert.Equal(t, "abc", ShortID("abc"))
}

// File: internal/platform/firestoreutil/subscription.go
package firestoreutil

import (
	"context"
	"errors"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Subscription is a running snapshot listener. Stop ends it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start runs listen in a goroutine bound to a child of ctx. When listen returns an error
// other than a cancellation, onError receives it. onError may be nil.
func Start(ctx context.Context, listen func(ctx context.Context) error, onError func(error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer cancel()
		if err := listen(ctx); err != nil && !IsCanceled(err) && onError != nil {
			onError(err)
		}
	}()
	return s
}

// Noop returns a subscription that is already stopped.
func Noop() *Subscription {
	s := &Subscription{cancel: func() {}, done: make(chan struct{})}
	close(s.done)
	return s
}

// Stop cancels the listener and waits for it to exit. It is safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the listener has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// IsCanceled reports whether err comes from a cancelled listener.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return status.Code(err) == codes.Canceled
}

// IsNotFound reports whether err is a Firestore missing-document error.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// WatchDocument delivers every snapshot of ref to fn until stopped. Snapshots of a missing
// document have Exists() == false.
func WatchDocument(ctx context.Context, ref *firestore.DocumentRef, fn func(*firestore.DocumentSnapshot) error, onError func(error)) *Subscription {
	return Start(ctx, func(ctx context.Context) error {
		it := ref.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				return err
			}
			if err := fn(snap); err != nil {
				return err
			}
		}
	}, onError)
}

// WatchQuery delivers every result set of q to fn until stopped.
func WatchQuery(ctx context.Context, q firestore.Query, fn func(*firestore.QuerySnapshot) error, onError func(error)) *Subscription {
	return Start(ctx, func(ctx context.Context) error {
		it := q.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				return err
			}
			if err := fn(snap); err != nil {
				return err
			}
		}
	}, onError)
}

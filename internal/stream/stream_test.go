package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)

	evt := SaleEvent{SaleID: 7, Total: 19.98, ItemCount: 2, Timestamp: time.Now().UTC()}
	s.Publish(evt)

	for name, ch := range map[string]<-chan SaleEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.SaleID != 7 {
				t.Fatalf("subscriber %s got %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s never received event", name)
		}
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel never closed")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(SaleEvent{SaleID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

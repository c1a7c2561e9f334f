package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"travis-log-fetch/src/logger"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	msgChan, err := broker.Subscribe(ctx, "test-topic", "test-group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, "test-topic", "foo/bar", []byte("first")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := broker.Publish(ctx, "test-topic", "foo/bar", []byte("second")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, want := range []string{"first", "second"} {
		select {
		case msg := <-msgChan:
			if msg.Topic != "test-topic" || msg.Key != "foo/bar" {
				t.Errorf("Unexpected topic/key %s/%s", msg.Topic, msg.Key)
			}
			if string(msg.Value) != want {
				t.Errorf("Expected value %s, got %s", want, msg.Value)
			}
			if msg.Offset != int64(i) {
				t.Errorf("Expected offset %d, got %d", i, msg.Offset)
			}
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for message")
		}
	}
}

func TestInMemoryBroker_MultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	sub1, _ := broker.Subscribe(ctx, "shared", "group1")
	sub2, _ := broker.Subscribe(ctx, "shared", "group2")
	other, _ := broker.Subscribe(ctx, "other", "group1")

	if err := broker.Publish(ctx, "shared", "key", []byte("broadcast")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != "broadcast" {
				t.Errorf("Subscriber %d: got %s", i+1, msg.Value)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}

	select {
	case msg := <-other:
		t.Errorf("Topic other should not receive a message, got %s", msg.Value)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	ctx := context.Background()

	sub, _ := broker.Subscribe(ctx, "test", "group")
	broker.Close()

	if _, ok := <-sub; ok {
		t.Error("Subscription channel should be closed")
	}
	if err := broker.Publish(ctx, "test", "key", []byte("value")); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close error = %v, want ErrClosed", err)
	}
	if _, err := broker.Subscribe(ctx, "test", "group"); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe after Close error = %v, want ErrClosed", err)
	}
	if err := broker.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
}

func TestInMemoryBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(publisher bool) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if publisher {
					_ = broker.Publish(ctx, "concurrent", "", []byte("msg"))
				} else {
					ch, _ := broker.Subscribe(ctx, "concurrent", "g")
					go func() {
						for range ch {
						}
					}()
				}
			}
		}(i%2 == 0)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout - possible deadlock in concurrent access")
	}
}

func TestKgoLogger(t *testing.T) {
	rec := logger.NewRecordingLogger()
	l := kgoLogger{log: rec}

	l.Log(kgo.LogLevelError, "unable to dial", "broker", "seed_0", "err", "refused")
	l.Log(kgo.LogLevelWarn, "retrying")
	l.Log(kgo.LogLevelInfo, "assigned partitions")
	l.Log(kgo.LogLevelDebug, "dropped")

	if got := rec.Entries("ERROR"); len(got) != 1 || got[0].Message != "redpanda: unable to dial broker=seed_0 err=refused" {
		t.Errorf("error entries = %+v", got)
	}
	if got := rec.Entries("WARNING"); len(got) != 1 {
		t.Errorf("warn entries = %+v", got)
	}
	if got := rec.Entries("DEBUG"); len(got) != 1 || got[0].Message != "redpanda: assigned partitions" {
		t.Errorf("debug entries = %+v", got)
	}
	if l.Level() != kgo.LogLevelInfo {
		t.Errorf("Level = %v", l.Level())
	}
}

func TestNewRedpandaBroker_RequiresBrokers(t *testing.T) {
	if _, err := NewRedpandaBroker(nil, logger.NewSilentLogger()); err == nil {
		t.Error("expected error without brokers")
	}
}

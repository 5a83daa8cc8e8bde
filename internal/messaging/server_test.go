package messaging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

// startTestServer runs an embedded nats server on a random port and waits
// for its internal client connection.
func startTestServer(t *testing.T) *NatsServer {
	t.Helper()

	// Port -1 asks the embedded server for a random free port.
	ns, err := NewNatsServer(WithPort(-1), WithStartTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("creating nats server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ns.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("nats server: %v", err)
		}
	})

	deadline := time.Now().Add(5 * time.Second)
	for ns.Publish("ready.probe", nil) != nil {
		if time.Now().After(deadline) {
			t.Fatal("nats server never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ns
}

func TestNatsServerPublishSubscribe(t *testing.T) {
	ns := startTestServer(t)

	received := make(chan []byte, 1)
	unsub, err := ns.Subscribe(ConnSubject("abc"), func(data []byte) {
		received <- data
	})
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	if err := ns.Publish(ConnSubject("abc"), []byte("hello")); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case data := <-received:
		testutil.AssertEqual(t, "payload", string(data), "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("message never delivered")
	}
}

func TestNatsServerSubjectOrdering(t *testing.T) {
	ns := startTestServer(t)

	const n = 100
	var mu sync.Mutex
	var got []string
	all := make(chan struct{})

	unsub, err := ns.Subscribe(ConnSubject("ordered"), func(data []byte) {
		mu.Lock()
		got = append(got, string(data))
		if len(got) == n {
			close(all)
		}
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	for i := 0; i < n; i++ {
		if err := ns.Publish(ConnSubject("ordered"), []byte(fmt.Sprintf("msg-%03d", i))); err != nil {
			t.Fatalf("publishing %d: %v", i, err)
		}
	}

	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected %d messages, got %d", n, len(got))
	}

	mu.Lock()
	defer mu.Unlock()
	for i, msg := range got {
		testutil.AssertEqual(t, "order", msg, fmt.Sprintf("msg-%03d", i))
	}
}

func TestNatsServerUnsubscribe(t *testing.T) {
	ns := startTestServer(t)

	received := make(chan []byte, 1)
	unsub, err := ns.Subscribe(ConnSubject("gone"), func(data []byte) {
		received <- data
	})
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	unsub()

	// Publishing to a subject with no subscriber is a silent no-op.
	if err := ns.Publish(ConnSubject("gone"), []byte("dropped")); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case data := <-received:
		t.Fatalf("unexpected delivery after unsubscribe: %q", data)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNatsServerNotStarted(t *testing.T) {
	ns, err := NewNatsServer(WithPort(-1))
	if err != nil {
		t.Fatalf("creating nats server: %v", err)
	}

	if _, err := ns.Subscribe("x", func([]byte) {}); err == nil {
		t.Error("expected error subscribing before start")
	}
	if err := ns.Publish("x", nil); err == nil {
		t.Error("expected error publishing before start")
	}
}

package amqp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.want {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed", errors.New("connection closed by server"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"unrelated", errors.New("access refused for vhost"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitBreakerTransitions(t *testing.T) {
	c := &Client{url: "amqp://localhost"}

	if c.isCircuitOpen() {
		t.Fatal("new client should start with circuit closed")
	}

	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}
	if !c.isCircuitOpen() {
		t.Fatal("circuit should open after max failures")
	}

	// Simulate the open timeout elapsing, the next check moves to half-open.
	c.mu.Lock()
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	c.mu.Unlock()
	if c.isCircuitOpen() {
		t.Fatal("circuit should allow a probe after open timeout")
	}

	c.recordSuccess()
	if c.isCircuitOpen() {
		t.Fatal("circuit should close after a success")
	}
	if got := c.failureCount; got != 0 {
		t.Errorf("failureCount = %d after success, want 0", got)
	}
}

func TestPublishFailsWhenCircuitOpen(t *testing.T) {
	c := &Client{url: "amqp://localhost", exchangeName: "events", queueName: "transactions"}
	for i := 0; i < maxFailures; i++ {
		c.recordFailure()
	}

	err := c.PublishTransactionEvent(context.Background(), "income", ActionCreated, "id-1", "user-1")
	if err == nil {
		t.Fatal("expected error when circuit is open")
	}
}

func TestPublishRespectsContextCancellation(t *testing.T) {
	c := &Client{url: "amqp://localhost", exchangeName: "events", queueName: "transactions"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.PublishTransactionEvent(ctx, "expense", ActionDeleted, "id-1", "user-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTransactionEventRoundTrip(t *testing.T) {
	msg := NewTransactionEvent("income", ActionCreated, "inc-1", "user-1")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Kind != "income" || got.Action != ActionCreated || got.ID != "inc-1" || got.UserID != "user-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

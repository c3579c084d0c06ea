package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestSetBaseContextNilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetBaseContext(ctx)
	if serverBaseCtx != ctx {
		t.Fatalf("base context not installed")
	}
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatalf("nil did not reset to Background")
	}
}

func TestJoinContextsCancelsOnEither(t *testing.T) {
	for _, first := range []string{"a", "b"} {
		a, cancelA := context.WithCancel(context.Background())
		b, cancelB := context.WithCancel(context.Background())
		j, cancelJ := joinContexts(a, b)
		if first == "a" {
			cancelA()
		} else {
			cancelB()
		}
		select {
		case <-j.Done():
		case <-time.After(time.Second):
			t.Fatalf("joined context not canceled after %s", first)
		}
		cancelJ()
		cancelA()
		cancelB()
	}
}

package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	contracts "contentboard/contracts/mq"
	"contentboard/pkg/trace"
)

type fakeNotifier struct {
	calls   int
	err     error
	traceID string
}

func (f *fakeNotifier) Notify(ctx context.Context, p contracts.ScheduleCreatedPayload) (string, error) {
	f.calls++
	f.traceID = trace.FromContext(ctx)
	if f.err != nil {
		return "", f.err
	}
	return "sent", nil
}

type memGuard struct {
	seen     map[string]bool
	released int
}

func (g *memGuard) AcquireOnce(ctx context.Context, handler, key string) bool {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[handler+key] {
		return false
	}
	g.seen[handler+key] = true
	return true
}

func (g *memGuard) Release(ctx context.Context, handler, key string) {
	delete(g.seen, handler+key)
	g.released++
}

type memRetries struct {
	counts map[string]int64
	resets int
	err    error
}

func (r *memRetries) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.counts == nil {
		r.counts = make(map[string]int64)
	}
	r.counts[key]++
	return r.counts[key], nil
}

func (r *memRetries) Reset(ctx context.Context, key string) error {
	delete(r.counts, key)
	r.resets++
	return nil
}

func raw(t *testing.T, p contracts.ScheduleCreatedPayload) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleSendsOnce(t *testing.T) {
	n := &fakeNotifier{}
	h := NewScheduleCreatedHandler(n, &memGuard{}, &memRetries{}, 3, zap.NewNop())
	msg := raw(t, contracts.ScheduleCreatedPayload{TaskID: "t1", TraceID: "trace-1"})

	for i := 0; i < 2; i++ {
		if err := h.Handle(context.Background(), msg); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if n.calls != 1 {
		t.Fatalf("duplicate delivery must be skipped, calls = %d", n.calls)
	}
	if n.traceID != "trace-1" {
		t.Fatalf("trace id not propagated from payload, got %q", n.traceID)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	n := &fakeNotifier{}
	h := NewScheduleCreatedHandler(n, &memGuard{}, &memRetries{}, 3, zap.NewNop())

	if err := h.Handle(context.Background(), json.RawMessage(`{"task_id":`)); err != nil {
		t.Fatalf("malformed payload must be acked, got %v", err)
	}
	if err := h.Handle(context.Background(), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("payload without task id must be acked, got %v", err)
	}
	if n.calls != 0 {
		t.Fatalf("notifier must not be called")
	}
}

func TestHandleRequeuesRetryableUntilExhausted(t *testing.T) {
	n := &fakeNotifier{err: context.DeadlineExceeded}
	guard := &memGuard{}
	retries := &memRetries{}
	h := NewScheduleCreatedHandler(n, guard, retries, 3, zap.NewNop())
	msg := raw(t, contracts.ScheduleCreatedPayload{TaskID: "t1"})

	for i := 0; i < 2; i++ {
		if err := h.Handle(context.Background(), msg); err == nil {
			t.Fatalf("attempt %d: retryable error should requeue", i+1)
		}
	}
	if guard.released != 2 {
		t.Fatalf("dedupe key must be released before requeue, released = %d", guard.released)
	}
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("third attempt must give up and ack, got %v", err)
	}
	if n.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", n.calls)
	}
}

func TestHandleAcksWhenRetryCounterFails(t *testing.T) {
	n := &fakeNotifier{err: context.DeadlineExceeded}
	guard := &memGuard{}
	retries := &memRetries{err: errors.New("redis: connection refused")}
	h := NewScheduleCreatedHandler(n, guard, retries, 3, zap.NewNop())

	if err := h.Handle(context.Background(), raw(t, contracts.ScheduleCreatedPayload{TaskID: "t1"})); err != nil {
		t.Fatalf("message must be acked when retries cannot be counted, got %v", err)
	}
	if guard.released != 0 {
		t.Fatalf("dedupe key must be kept, released = %d", guard.released)
	}
}

func TestHandleAcksPermanentErrors(t *testing.T) {
	n := &fakeNotifier{err: errors.New("template: bad field")}
	h := NewScheduleCreatedHandler(n, &memGuard{}, &memRetries{}, 3, zap.NewNop())

	if err := h.Handle(context.Background(), raw(t, contracts.ScheduleCreatedPayload{TaskID: "t1"})); err != nil {
		t.Fatalf("permanent error must be acked, got %v", err)
	}
}

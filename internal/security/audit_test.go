package security

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"storage-visual/internal/domain"
)

func readEvents(t *testing.T, path string) []domain.AuditEvent {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var events []domain.AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e domain.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Unmarshal %q: %v", scanner.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

func TestFileAuditLogger_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")

	logger, err := NewFileAuditLogger(path)
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}
	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}

	event := domain.AuditEvent{
		Type:   domain.AuditStorageGet,
		Detail: map[string]string{"request_id": "01J"},
	}
	if err := logger.Log(context.Background(), event); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != domain.AuditStorageGet {
		t.Errorf("Type = %q, want %q", events[0].Type, domain.AuditStorageGet)
	}
	if events[0].Detail["request_id"] != "01J" {
		t.Errorf("request_id = %q", events[0].Detail["request_id"])
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp should be filled in")
	}
}

func TestFileAuditLogger_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewFileAuditLogger(path)
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Log(context.Background(), domain.AuditEvent{Type: domain.AuditStorageSet})
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readEvents(t, path)); got != 20 {
		t.Errorf("got %d events, want 20", got)
	}
}

func TestFileAuditLogger_WriteAfterClose(t *testing.T) {
	logger, err := NewFileAuditLogger(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}
	logger.Close()

	err = logger.Log(context.Background(), domain.AuditEvent{Type: domain.AuditStatusCheck})
	if err == nil {
		t.Fatal("expected error writing to closed log")
	}
	if domain.ErrorCodeOf(err) != domain.CodeAuditWrite {
		t.Errorf("code = %s, want %s", domain.ErrorCodeOf(err), domain.CodeAuditWrite)
	}
}

func TestFileAuditLogger_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewFileAuditLogger(path)
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}
	defer logger.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestFileAuditLogger_SpanEvent(t *testing.T) {
	logger, err := NewFileAuditLogger(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}
	defer logger.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "visual.get")
	if err := logger.LogAccess(ctx, domain.AuditAccessDenied, "", "get", "denied"); err != nil {
		t.Fatalf("LogAccess: %v", err)
	}
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("got %d spans, want 1", len(ended))
	}
	events := ended[0].Events()
	if len(events) != 1 || events[0].Name != "audit.access_denied" {
		t.Fatalf("span events = %+v", events)
	}
}

func TestNewFileAuditLoggerInvalidPath(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileAuditLogger(filepath.Join(parent, "audit.jsonl")); err == nil {
		t.Error("expected error when parent is a regular file")
	}
}

type syncBus struct {
	mu    sync.Mutex
	typed map[domain.EventType][]domain.EventHandler
}

func (b *syncBus) Publish(ctx context.Context, e domain.Event) {
	b.mu.Lock()
	handlers := b.typed[e.Type]
	b.mu.Unlock()
	for _, h := range handlers {
		h(ctx, e)
	}
}

func (b *syncBus) Subscribe(t domain.EventType, h domain.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.typed == nil {
		b.typed = make(map[domain.EventType][]domain.EventHandler)
	}
	b.typed[t] = append(b.typed[t], h)
	idx := len(b.typed[t]) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[t][idx] = func(context.Context, domain.Event) {}
	}
}

func (b *syncBus) SubscribeAll(domain.EventHandler) func() { return func() {} }
func (b *syncBus) Close() {}

func TestAuditSubscriber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	audit, err := NewFileAuditLogger(path)
	if err != nil {
		t.Fatalf("NewFileAuditLogger: %v", err)
	}
	bus := &syncBus{}
	unsub := AttachAuditSubscriber(bus, audit, nil)
	ctx := context.Background()

	bus.Publish(ctx, domain.NewEvent(domain.EventOperationDone, "r1", domain.OperationResult{
		RequestID: "r1", Kind: domain.OpGet, Outcome: domain.OutcomeSuccess, Value: "top-secret",
	}))
	bus.Publish(ctx, domain.NewEvent(domain.EventOperationDone, "r2", domain.OperationResult{
		RequestID: "r2", Kind: domain.OpSet, Outcome: domain.OutcomeDenied,
	}))
	bus.Publish(ctx, domain.NewEvent(domain.EventOperationError, "r3", domain.OperationErrorPayload{
		Kind: domain.OpRemove, Key: "k", Error: "boom", Code: domain.CodeUnexpected,
	}))
	unsub()
	bus.Publish(ctx, domain.NewEvent(domain.EventOperationDone, "r4", domain.OperationResult{
		RequestID: "r4", Kind: domain.OpGet, Outcome: domain.OutcomeSuccess,
	}))
	audit.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(raw), "top-secret") {
		t.Error("stored values must never be audited")
	}

	events := readEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	want := []struct {
		typ     domain.AuditEventType
		outcome string
		reqID   string
	}{
		{domain.AuditStorageGet, "success", "r1"},
		{domain.AuditAccessDenied, "denied", "r2"},
		{domain.AuditUnexpected, "error", "r3"},
	}
	for i, w := range want {
		if events[i].Type != w.typ || events[i].Outcome != w.outcome || events[i].Detail["request_id"] != w.reqID {
			t.Errorf("event %d = %+v, want %+v", i, events[i], w)
		}
	}
	if events[2].Detail["code"] != string(domain.CodeUnexpected) {
		t.Errorf("code = %q", events[2].Detail["code"])
	}
	if time.Since(events[0].Timestamp) > time.Minute {
		t.Errorf("timestamp %v should come from the event", events[0].Timestamp)
	}
}

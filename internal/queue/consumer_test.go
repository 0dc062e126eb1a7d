package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleAppendsLine(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{Dir: dir}

	body := `{"kind":"request.escalated","actor_role":"manager","actor_id":2,"request_id":10,"occurred_at":"2026-01-02T03:04:05Z"}`
	if err := c.Handle([]byte(body)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := c.Handle([]byte(`{"kind":"complex.created","actor_role":"owner","detail":"North","occurred_at":"t"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "activity.log"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), b)
	}
	want := "[2026-01-02T03:04:05Z] request.escalated | actor=manager#2 | request_id=10"
	if lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if !strings.Contains(lines[1], `detail="North"`) {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestHandleRejectsBadPayload(t *testing.T) {
	c := &Consumer{Dir: t.TempDir()}
	if err := c.Handle([]byte("not json")); err == nil {
		t.Error("expected error for non-JSON body")
	}
	if err := c.Handle([]byte(`{"actor_role":"owner"}`)); err == nil {
		t.Error("expected error for event without kind")
	}
}

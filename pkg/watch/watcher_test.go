package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/a/2025/01. JANUAR/januar.xlsx", true},
		{"/a/2025/01. JANUAR/JANUAR.XLSX", true},
		{"/a/2025/01. JANUAR/~$januar.xlsx", false},
		{"/a/2025/01. JANUAR/.januar.xlsx.swp", false},
		{"/a/2025/01. JANUAR/notes.txt", false},
		{"/a/2025/01. JANUAR/januar.xls", false},
	}
	for _, tt := range tests {
		if got := Relevant(tt.path); got != tt.want {
			t.Errorf("Relevant(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_DebouncedChange(t *testing.T) {
	root := t.TempDir()
	monthDir := filepath.Join(root, "2025", "01. JANUAR")
	if err := os.MkdirAll(monthDir, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(root, 100*time.Millisecond, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var mu sync.Mutex
	var calls [][]string
	done := make(chan struct{}, 4)
	w.OnChange = func(ctx context.Context, changed []string) error {
		mu.Lock()
		calls = append(calls, changed)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// Lock files alone never trigger.
	os.WriteFile(filepath.Join(monthDir, "~$januar.xlsx"), []byte("x"), 0o644)
	wb := filepath.Join(monthDir, "januar.xlsx")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(wb, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected OnChange to be called")
	}

	mu.Lock()
	if len(calls) != 1 {
		t.Errorf("Expected one debounced call, got %d", len(calls))
	}
	if len(calls) > 0 && (len(calls[0]) != 1 || calls[0][0] != wb) {
		t.Errorf("Expected [%s], got %v", wb, calls[0])
	}
	mu.Unlock()

	cancel()
	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_NewMonthDirectory(t *testing.T) {
	root := t.TempDir()
	year := filepath.Join(root, "2025")
	if err := os.MkdirAll(year, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(root, 50*time.Millisecond, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	changes := make(chan []string, 4)
	w.OnChange = func(ctx context.Context, changed []string) error {
		changes <- changed
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	month := filepath.Join(year, "02. FEBRUAR")
	if err := os.Mkdir(month, 0o755); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected new directory to trigger a change")
	}

	// The new directory is watched too.
	wb := filepath.Join(month, "februar.xlsx")
	if err := os.WriteFile(wb, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-changes:
		if len(got) != 1 || got[0] != wb {
			t.Errorf("Expected [%s], got %v", wb, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected workbook in new directory to trigger a change")
	}
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), 0, nil); err == nil {
		t.Error("Expected error for missing root")
	}
}

package state

import (
	"context"
	"os"
	"testing"

	persist "github.com/goliatone/go-persist"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestFileStoreMetrics(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())

	saves := metricStoreOperations.WithLabelValues("save", "ok")
	missing := metricStoreOperations.WithLabelValues("load", "missing")
	loaded := metricStoreOperations.WithLabelValues("load", "ok")
	savesBefore := counterValue(t, saves)
	missingBefore := counterValue(t, missing)
	loadedBefore := counterValue(t, loaded)
	recoveriesBefore := counterValue(t, metricStoreRecoveries)

	if _, _, err := store.Load(ctx, "ann.json"); err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if err := store.Save(ctx, "ann.json", persist.Document{"xp": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := store.Path("ann.json")
	backup, _ := store.BackupPath("ann.json")
	if err := os.Rename(path, backup); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, ok, err := store.Load(ctx, "ann.json"); err != nil || !ok {
		t.Fatalf("load restored: ok=%v err=%v", ok, err)
	}

	if got := counterValue(t, saves) - savesBefore; got != 1 {
		t.Fatalf("expected 1 save, got %v", got)
	}
	if got := counterValue(t, missing) - missingBefore; got != 1 {
		t.Fatalf("expected 1 missing load, got %v", got)
	}
	if got := counterValue(t, loaded) - loadedBefore; got != 1 {
		t.Fatalf("expected 1 successful load, got %v", got)
	}
	if got := counterValue(t, metricStoreRecoveries) - recoveriesBefore; got != 1 {
		t.Fatalf("expected 1 recovery, got %v", got)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, _, err := store.Load(ctx, ""); err != ErrLocationRequired {
		t.Fatalf("expected ErrLocationRequired, got %v", err)
	}
	if err := store.Save(ctx, "a", persist.Document{"n": 1.5, "tags": []string{"x"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc, ok, err := store.Load(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if doc["n"] != 1.5 {
		t.Fatalf("expected 1.5, got %v", doc["n"])
	}
	if tags, _ := doc["tags"].([]any); len(tags) != 1 || tags[0] != "x" {
		t.Fatalf("expected decoded tags, got %v", doc["tags"])
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := store.Exists(ctx, "a"); exists {
		t.Fatalf("expected deleted")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Save(canceled, "a", persist.Document{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

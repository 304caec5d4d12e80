package state_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	persist "github.com/goliatone/go-persist"
	"github.com/goliatone/go-persist/pkg/state"
	"github.com/google/go-cmp/cmp"
)

func sampleDocument(xp int) persist.Document {
	return persist.Document{
		persist.TypeKey:    "MemberData",
		persist.VersionKey: 2,
		"level":            1,
		"xp":               xp,
		"items":            []any{map[string]any{persist.TypeKey: "Item", "name": "Apple", "price": 0.5}},
	}
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := state.NewFileStore(t.TempDir())

	if err := store.Save(ctx, "members/ann.json", sampleDocument(10)); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc, ok, err := store.Load(ctx, "members/ann.json")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	want := persist.Document{
		persist.TypeKey:    "MemberData",
		persist.VersionKey: int64(2),
		"level":            int64(1),
		"xp":               int64(10),
		"items":            []any{map[string]any{persist.TypeKey: "Item", "name": "Apple", "price": 0.5}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("unexpected document (-want +got):\n%s", diff)
	}
}

func TestFileStoreWritesIndentedJSON(t *testing.T) {
	root := t.TempDir()
	store := state.NewFileStore(root)
	if err := store.Save(context.Background(), "ann.json", persist.Document{"xp": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload, err := os.ReadFile(filepath.Join(root, "ann.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(payload), "\n    \"xp\": 1") {
		t.Fatalf("expected four space indentation, got:\n%s", payload)
	}
}

func TestFileStoreSaveTwiceLeavesNoBackup(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := state.NewFileStore(root)
	path, _ := store.Path("ann.json")
	backup, _ := store.BackupPath("ann.json")

	if err := store.Save(ctx, "ann.json", sampleDocument(3)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first, _ := os.ReadFile(path)
	if err := store.Save(ctx, "ann.json", sampleDocument(3)); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, _ := os.ReadFile(path)

	if !bytes.Equal(first, second) {
		t.Fatalf("content changed between identical saves")
	}
	if _, err := os.Stat(backup); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no backup after save, stat err=%v", err)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	root := t.TempDir()
	store := state.NewFileStore(root)
	doc, ok, err := store.Load(context.Background(), "nested/dir/ann.json")
	if err != nil || ok || doc != nil {
		t.Fatalf("expected missing document, got doc=%v ok=%v err=%v", doc, ok, err)
	}
	if info, err := os.Stat(filepath.Join(root, "nested", "dir")); err != nil || !info.IsDir() {
		t.Fatalf("expected parent directory to be created, err=%v", err)
	}
}

func TestFileStoreRestoresBackupWhenPrimaryMissing(t *testing.T) {
	ctx := context.Background()
	store := state.NewFileStore(t.TempDir())
	path, _ := store.Path("ann.json")
	backup, _ := store.BackupPath("ann.json")

	if err := store.Save(ctx, "ann.json", sampleDocument(42)); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Interrupted save: primary renamed away, new content never written.
	if err := os.Rename(path, backup); err != nil {
		t.Fatalf("rename: %v", err)
	}

	doc, ok, err := store.Load(ctx, "ann.json")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if doc["xp"] != int64(42) {
		t.Fatalf("expected backup content, got %v", doc["xp"])
	}
	if _, err := os.Stat(backup); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected backup to be moved back, stat err=%v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected primary restored: %v", err)
	}
}

func TestFileStoreRestoresBackupWhenPrimaryCorrupt(t *testing.T) {
	ctx := context.Background()
	var events []persist.LogEvent
	store := state.NewFileStore(t.TempDir(), state.WithStoreLogger(persist.LoggerFunc(func(event persist.LogEvent) {
		events = append(events, event)
	})))
	path, _ := store.Path("ann.json")
	backup, _ := store.BackupPath("ann.json")

	if err := store.Save(ctx, "ann.json", sampleDocument(7)); err != nil {
		t.Fatalf("save: %v", err)
	}
	copyFile(t, path, backup)
	if err := os.WriteFile(path, []byte(`{"xp": 9`), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	doc, ok, err := store.Load(ctx, "ann.json")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if doc["xp"] != int64(7) {
		t.Fatalf("expected backup content, got %v", doc["xp"])
	}

	var restored bool
	for _, event := range events {
		if event.Op == "store.restore" && event.Path == "ann.json" {
			restored = true
		}
	}
	if !restored {
		t.Fatalf("expected a store.restore event, got %+v", events)
	}
}

func TestFileStoreCorruptWithoutBackup(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "ann.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, ok, err := state.NewFileStore(root).Load(ctx, "ann.json")
	if ok || !errors.Is(err, state.ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got ok=%v err=%v", ok, err)
	}
	var corrupt *state.CorruptDocumentError
	if !errors.As(err, &corrupt) || corrupt.Location != "ann.json" || corrupt.Restored {
		t.Fatalf("unexpected corrupt error %+v", corrupt)
	}

	doc, ok, err := state.NewFileStore(root, state.WithIgnoreCorrupt(true)).Load(ctx, "ann.json")
	if err != nil || ok || doc != nil {
		t.Fatalf("expected corrupt document to be ignored, got doc=%v ok=%v err=%v", doc, ok, err)
	}
}

func TestFileStoreCorruptBackupIsReported(t *testing.T) {
	ctx := context.Background()
	store := state.NewFileStore(t.TempDir())
	path, _ := store.Path("ann.json")
	backup, _ := store.BackupPath("ann.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("write primary: %v", err)
	}
	if err := os.WriteFile(backup, []byte("["), 0o644); err != nil {
		t.Fatalf("write backup: %v", err)
	}

	_, _, err := store.Load(ctx, "ann.json")
	var corrupt *state.CorruptDocumentError
	if !errors.As(err, &corrupt) || !corrupt.Restored {
		t.Fatalf("expected corrupt error after restore, got %v", err)
	}
}

func TestFileStoreSaveEncodeFailureKeepsFile(t *testing.T) {
	ctx := context.Background()
	store := state.NewFileStore(t.TempDir())
	path, _ := store.Path("ann.json")
	if err := store.Save(ctx, "ann.json", sampleDocument(1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, _ := os.ReadFile(path)

	if err := store.Save(ctx, "ann.json", persist.Document{"bad": func() {}}); err == nil {
		t.Fatalf("expected encode error")
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("failed save must not touch the stored document")
	}
}

func TestFileStoreDeleteKeepsBackup(t *testing.T) {
	ctx := context.Background()
	store := state.NewFileStore(t.TempDir())
	backup, _ := store.BackupPath("ann.json")
	if err := store.Save(ctx, "ann.json", sampleDocument(1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(backup, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write backup: %v", err)
	}

	if err := store.Delete(ctx, "ann.json"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, err := store.Exists(ctx, "ann.json"); err != nil || exists {
		t.Fatalf("expected primary removed, exists=%v err=%v", exists, err)
	}
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup must survive delete: %v", err)
	}
	if err := store.Delete(ctx, "ann.json"); err != nil {
		t.Fatalf("deleting a missing document must succeed: %v", err)
	}
}

func TestFileStoreRejectsEmptyLocation(t *testing.T) {
	store := state.NewFileStore(t.TempDir())
	if _, _, err := store.Load(context.Background(), ""); !errors.Is(err, state.ErrLocationRequired) {
		t.Fatalf("expected ErrLocationRequired, got %v", err)
	}
}

func TestFileStoreConfigFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PERSIST_ROOT", root)
	t.Setenv("PERSIST_BACKUP_SUFFIX", ".bak")
	t.Setenv("PERSIST_INDENT", "2")
	t.Setenv("PERSIST_IGNORE_CORRUPT", "true")

	cfg, err := state.FileStoreConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	want := state.FileStoreConfig{Root: root, BackupSuffix: ".bak", Indent: 2, IgnoreCorrupt: true}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}

	store := state.NewFileStoreFromConfig(cfg)
	backup, _ := store.BackupPath("ann.json")
	if backup != filepath.Join(root, "ann.json.bak") {
		t.Fatalf("unexpected backup path %q", backup)
	}
	if err := store.Save(context.Background(), "ann.json", persist.Document{"xp": 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload, _ := os.ReadFile(filepath.Join(root, "ann.json"))
	if !strings.Contains(string(payload), "\n  \"xp\": 1") {
		t.Fatalf("expected two space indentation, got:\n%s", payload)
	}
}

func TestFileStoreConfigDefaults(t *testing.T) {
	cfg, err := state.FileStoreConfigFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.BackupSuffix != state.DefaultBackupSuffix || cfg.Indent != 4 || cfg.IgnoreCorrupt {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	payload, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read %s: %v", src, err)
	}
	if err := os.WriteFile(dst, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", dst, err)
	}
}

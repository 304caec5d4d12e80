package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	persist "github.com/goliatone/go-persist"
	"github.com/goliatone/go-persist/internal/codec"
)

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithBackupSuffix overrides DefaultBackupSuffix.
func WithBackupSuffix(suffix string) FileStoreOption {
	return func(s *FileStore) {
		if suffix != "" {
			s.suffix = suffix
		}
	}
}

// WithIndent sets the number of spaces used to indent stored documents.
func WithIndent(spaces int) FileStoreOption {
	return func(s *FileStore) {
		s.codec = codec.New(codec.WithIndent(spaces))
	}
}

// WithIgnoreCorrupt makes Load report an unrecoverable corrupt document as
// missing instead of returning a CorruptDocumentError.
func WithIgnoreCorrupt(ignore bool) FileStoreOption {
	return func(s *FileStore) {
		s.ignoreCorrupt = ignore
	}
}

// WithStoreLogger attaches a logger for store events.
func WithStoreLogger(logger persist.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileMode sets the permission bits of written documents and created
// directories.
func WithFileMode(file, dir fs.FileMode) FileStoreOption {
	return func(s *FileStore) {
		if file != 0 {
			s.fileMode = file
		}
		if dir != 0 {
			s.dirMode = dir
		}
	}
}

// FileStore keeps one JSON document per file below a root directory.
type FileStore struct {
	root          string
	suffix        string
	codec         *codec.Codec
	ignoreCorrupt bool
	logger        persist.Logger
	fileMode      fs.FileMode
	dirMode       fs.FileMode
}

// NewFileStore constructs a store resolving relative locations against
// root. An empty root leaves locations as given.
func NewFileStore(root string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		root:     root,
		suffix:   DefaultBackupSuffix,
		codec:    codec.New(),
		logger:   persist.NopLogger(),
		fileMode: 0o644,
		dirMode:  0o755,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path resolves location to a file path.
func (s *FileStore) Path(location string) (string, error) {
	if location == "" {
		return "", ErrLocationRequired
	}
	if s.root == "" || filepath.IsAbs(location) {
		return filepath.Clean(location), nil
	}
	return filepath.Join(s.root, location), nil
}

// BackupPath resolves the backup file of location.
func (s *FileStore) BackupPath(location string) (string, error) {
	path, err := s.Path(location)
	if err != nil {
		return "", err
	}
	return path + s.suffix, nil
}

// Load reads the document stored at location. A missing or unparsable
// primary is replaced by its backup, when one exists, and read once more.
func (s *FileStore) Load(ctx context.Context, location string) (persist.Document, bool, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := s.prepare(location)
	if err != nil {
		observe("load", "error", start)
		return nil, false, err
	}

	doc, ok, err := s.load(location, path, false)
	switch {
	case errors.Is(err, ErrCorruptDocument):
		observe("load", "corrupt", start)
	case err != nil:
		observe("load", "error", start)
	case !ok:
		observe("load", "missing", start)
	default:
		observe("load", "ok", start)
	}
	s.logger.Log(persist.LogEvent{Op: "store.load", Path: location, Duration: time.Since(start), Err: err})
	return doc, ok, err
}

func (s *FileStore) load(location, path string, restored bool) (persist.Document, bool, error) {
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if restored {
			return nil, false, nil
		}
		ok, err := s.restore(location, path)
		if err != nil || !ok {
			return nil, false, err
		}
		return s.load(location, path, true)
	}
	if err != nil {
		return nil, false, fmt.Errorf("state: read %q: %w", location, err)
	}

	raw, decodeErr := s.codec.Decode(payload)
	if decodeErr == nil {
		return persist.Document(raw), true, nil
	}
	if !restored {
		ok, err := s.restore(location, path)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return s.load(location, path, true)
		}
	}

	corrupt := &CorruptDocumentError{Location: location, Restored: restored, Err: decodeErr}
	if s.ignoreCorrupt {
		s.logger.Log(persist.LogEvent{Op: "store.load", Path: location, Message: "ignoring corrupt document", Err: corrupt})
		return nil, false, nil
	}
	return nil, false, corrupt
}

// restore moves the backup of location over its primary file. ok is false
// when there is no backup.
func (s *FileStore) restore(location, path string) (bool, error) {
	backup := path + s.suffix
	if _, err := os.Stat(backup); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("state: stat backup of %q: %w", location, err)
	}
	if err := os.Rename(backup, path); err != nil {
		return false, fmt.Errorf("state: restore backup of %q: %w", location, err)
	}
	metricStoreRecoveries.Inc()
	s.logger.Log(persist.LogEvent{Op: "store.restore", Path: location, Message: "restored backup"})
	return true, nil
}

// Save writes doc to location. The previous document is kept as a backup
// until the new one is written. doc is encoded before any file is touched,
// so an unencodable document leaves the store unchanged.
func (s *FileStore) Save(ctx context.Context, location string, doc persist.Document) error {
	start := time.Now()
	err := s.save(ctx, location, doc)
	if err != nil {
		observe("save", "error", start)
	} else {
		observe("save", "ok", start)
	}
	s.logger.Log(persist.LogEvent{Op: "store.save", Type: doc.TypeTag(), Path: location, Duration: time.Since(start), Err: err})
	return err
}

func (s *FileStore) save(ctx context.Context, location string, doc persist.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("state: save %q: document is nil", location)
	}
	payload, err := s.codec.Encode(map[string]any(doc))
	if err != nil {
		return fmt.Errorf("state: save %q: %w", location, err)
	}
	path, err := s.prepare(location)
	if err != nil {
		return err
	}
	backup := path + s.suffix

	if exists, err := fileExists(path); err != nil {
		return fmt.Errorf("state: stat %q: %w", location, err)
	} else if exists {
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("state: back up %q: %w", location, err)
		}
	}
	if err := os.WriteFile(path, payload, s.fileMode); err != nil {
		return fmt.Errorf("state: write %q: %w", location, err)
	}

	kept, err := fileExists(backup)
	if err != nil {
		return fmt.Errorf("state: stat backup of %q: %w", location, err)
	}
	if kept {
		if err := os.Remove(backup); err != nil {
			return fmt.Errorf("state: remove backup of %q: %w", location, err)
		}
	}
	return nil
}

// Delete removes the primary file of location. The backup is left alone.
func (s *FileStore) Delete(ctx context.Context, location string) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(location)
	if err == nil {
		err = os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		} else if err != nil {
			err = fmt.Errorf("state: delete %q: %w", location, err)
		}
	}
	if err != nil {
		observe("delete", "error", start)
	} else {
		observe("delete", "ok", start)
	}
	s.logger.Log(persist.LogEvent{Op: "store.delete", Path: location, Duration: time.Since(start), Err: err})
	return err
}

// Exists reports whether a primary file is stored at location.
func (s *FileStore) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.Path(location)
	if err != nil {
		return false, err
	}
	return fileExists(path)
}

// prepare resolves location and creates its parent directories.
func (s *FileStore) prepare(location string) (string, error) {
	path, err := s.Path(location)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return "", fmt.Errorf("state: create directory for %q: %w", location, err)
	}
	return path, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

package state

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultBackupSuffix is appended to a location to name its backup file.
const DefaultBackupSuffix = "_tmp_backup"

// FileStoreConfig describes a FileStore. It can be read from the environment
// with FileStoreConfigFromEnv.
type FileStoreConfig struct {
	Root          string `env:"PERSIST_ROOT"           envDefault:"."`
	BackupSuffix  string `env:"PERSIST_BACKUP_SUFFIX"  envDefault:"_tmp_backup"`
	Indent        int    `env:"PERSIST_INDENT"         envDefault:"4"`
	IgnoreCorrupt bool   `env:"PERSIST_IGNORE_CORRUPT" envDefault:"false"`
}

// FileStoreConfigFromEnv loads configuration from PERSIST_* variables.
func FileStoreConfigFromEnv() (FileStoreConfig, error) {
	var cfg FileStoreConfig
	if err := env.Parse(&cfg); err != nil {
		return FileStoreConfig{}, fmt.Errorf("state: parse env: %w", err)
	}
	return cfg, nil
}

// Options converts the config into FileStore options.
func (c FileStoreConfig) Options() []FileStoreOption {
	return []FileStoreOption{
		WithBackupSuffix(c.BackupSuffix),
		WithIndent(c.Indent),
		WithIgnoreCorrupt(c.IgnoreCorrupt),
	}
}

// NewFileStoreFromConfig builds a FileStore rooted at cfg.Root. Extra
// options are applied after the config.
func NewFileStoreFromConfig(cfg FileStoreConfig, opts ...FileStoreOption) *FileStore {
	return NewFileStore(cfg.Root, append(cfg.Options(), opts...)...)
}

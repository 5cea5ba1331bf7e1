package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/pachi/internal/domain/model"
	"github.com/okian/pachi/pkg/logger"
	"github.com/okian/pachi/pkg/metrics"
)

// Default file store configuration.
const (
	defaultFileName = "player_data.json"
	defaultFileMode = 0o600
	defaultDirMode  = 0o750
)

// FileStore implements Store over a single JSON file. Writes go through a
// temp file and rename so a crash mid-write leaves the previous record
// intact.
type FileStore struct {
	mu            sync.Mutex
	path          string
	ballAllowance int64
	logger        logger.Logger
}

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithPath sets the record file path.
func WithPath(path string) Option {
	return func(f *FileStore) {
		if path != "" {
			f.path = path
		}
	}
}

// WithBallAllowance sets the ball allowance used when building defaults.
func WithBallAllowance(allowance int64) Option {
	return func(f *FileStore) {
		if allowance > 0 {
			f.ballAllowance = allowance
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *FileStore) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFileStore creates a file store with configuration options.
func NewFileStore(opts ...Option) *FileStore {
	f := &FileStore{
		path:          defaultFileName,
		ballAllowance: 50,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = logger.Get().Named("store")
	}

	return f
}

// Load returns the last saved state, or defaults when absent or corrupt.
func (f *FileStore) Load(ctx context.Context) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn(ctx, "unreadable persisted record, starting fresh",
				logger.String("path", f.path),
				logger.Error(err),
			)
		}
		return DefaultState(f.ballAllowance), nil
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		f.logger.Warn(ctx, "corrupt persisted record, starting fresh",
			logger.String("path", f.path),
			logger.Error(err),
		)
		return DefaultState(f.ballAllowance), nil
	}

	if state.SessionRewards == nil {
		state.SessionRewards = []model.RewardPackage{}
	}
	if state.ProcessedEventIDs == nil {
		state.ProcessedEventIDs = []int64{}
	}

	return &state, nil
}

// Save durably overwrites the record.
func (f *FileStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return ErrNilState
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, defaultDirMode); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, defaultFileMode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod state file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

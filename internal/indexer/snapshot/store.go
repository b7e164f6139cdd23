package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/pkg/resilience"
)

// Status classifies the outcome of Load.
type Status int

const (
	StatusLoaded Status = iota
	StatusAbsent
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusAbsent:
		return "absent"
	case StatusCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// Result is the outcome of Load. Snapshot is set only for StatusLoaded; Err
// describes why a corrupt file was rejected.
type Result struct {
	Status   Status
	Snapshot *Snapshot
	Err      error
}

// Store reads and writes the snapshot file at a fixed path.
type Store struct {
	path   string
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewStore creates a Store for path. The parent directory is created on the
// first Save.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		retry: resilience.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
		},
		logger: slog.Default().With("component", "snapshot-store"),
	}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. It never fails: unreadable or invalid files are
// reported as StatusCorrupt and a missing file as StatusAbsent.
func (s *Store) Load() Result {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Status: StatusAbsent}
		}
		s.logger.Warn("snapshot unreadable", "path", s.path, "error", err)
		return Result{Status: StatusCorrupt, Err: err}
	}
	snap, err := Decode(data)
	if err != nil {
		s.logger.Warn("snapshot rejected", "path", s.path, "error", err)
		return Result{Status: StatusCorrupt, Err: err}
	}
	s.logger.Info("snapshot loaded",
		"path", s.path,
		"passages", len(snap.Passages),
		"terms", len(snap.Postings),
	)
	return Result{Status: StatusLoaded, Snapshot: snap}
}

// Save writes snap to a temporary file next to the target, syncs it and
// renames it into place, so readers see either the old or the new file.
// Errors wrap apperrors.ErrSnapshotWrite.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSnapshotWrite, err)
	}
	err = resilience.Retry(ctx, "snapshot-save", s.retry, func() error {
		return s.writeAtomic(data)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSnapshotWrite, err)
	}
	s.logger.Info("snapshot saved", "path", s.path, "bytes", len(data))
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpPath := f.Name()
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	committed = true
	return nil
}

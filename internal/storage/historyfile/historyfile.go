// Package historyfile persists the tracking numbers already pushed downstream
// as a single pretty-printed JSON array.
package historyfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BearBump/ParcelSync/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const DefaultPath = "tracking_history.json"

type Store struct {
	path   string
	dryRun bool
	log    *zap.Logger

	// beforeRename runs once the temp file is complete; a non-nil error aborts the save.
	beforeRename func(tmpPath string) error
}

func New(path string, dryRun bool, log *zap.Logger) *Store {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, dryRun: dryRun, log: log}
}

func (s *Store) Path() string { return s.path }

// Load returns the persisted history. A missing or unparsable file is an empty
// history, not an error; only an unreadable file fails.
func (s *Store) Load() ([]models.HistoryRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read history")
	}

	var records []models.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn("history file is malformed, starting from empty history",
			zap.String("path", s.path), zap.Error(err))
		return []models.HistoryRecord{}, nil
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return records, nil
}

// Save replaces the history file atomically: the content goes to a temp file
// in the same directory which is renamed over the destination, all under an
// exclusive lock on a sidecar lock file. On failure the temp file is removed
// and the destination keeps its previous content.
func (s *Store) Save(records []models.HistoryRecord) error {
	if s.dryRun {
		s.log.Info("dry run: history not written", zap.String("path", s.path), zap.Int("records", len(records)))
		return nil
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal history")
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp history")
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp history")
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "chmod temp history")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp history")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp history")
	}

	if s.beforeRename != nil {
		if err := s.beforeRename(tmpPath); err != nil {
			return errors.Wrap(err, "write history")
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "rename history")
	}
	committed = true

	s.log.Info("history saved", zap.String("path", s.path), zap.Int("records", len(records)))
	return nil
}

func (s *Store) lock() (func(), error) {
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open history lock")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "lock history")
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}

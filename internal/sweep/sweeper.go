package sweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"stale-sweep/internal/disk"
	"stale-sweep/internal/fsops"
	"stale-sweep/internal/safety"
)

// ErrInvalidRoot is returned when the sweep root is missing or not a directory.
// It is the only error that aborts a sweep before traversal; all per-entry
// failures are captured as failed Records instead.
var ErrInvalidRoot = errors.New("invalid sweep root")

// Logger interface for structured logging in the sweeper
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{})  { l.logWithLevel("INFO", msg, args...) }
func (l *stdLogger) Warn(msg string, args ...interface{})  { l.logWithLevel("WARN", msg, args...) }
func (l *stdLogger) Error(msg string, args ...interface{}) { l.logWithLevel("ERROR", msg, args...) }

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Sweeper walks a directory tree and removes stale artifacts:
// directories matched by name (removed recursively, never descended into)
// and files matched by extension.
type Sweeper struct {
	logger     Logger
	deleter    fsops.Deleter
	validator  *safety.Validator
	dryRun     bool
	nfsTimeout time.Duration
}

// NewSweeper creates a Sweeper. With dryRun set, matches are reported but
// no delete operation is ever issued.
func NewSweeper(logger *log.Logger, dryRun bool) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		logger:  &stdLogger{Logger: logger},
		deleter: fsops.OSDeleter{},
		dryRun:  dryRun,
	}
}

// SetDeleter swaps the delete backend (used by tests to prove dry-run)
func (s *Sweeper) SetDeleter(d fsops.Deleter) {
	s.deleter = d
}

// SetValidator installs a safety validator consulted before every removal
func (s *Sweeper) SetValidator(v *safety.Validator) {
	s.validator = v
}

// SetNFSTimeout enables stale-NFS detection before removals
func (s *Sweeper) SetNFSTimeout(d time.Duration) {
	s.nfsTimeout = d
}

// Sweep traverses the tree rooted at root and removes every entry the rule
// matches. It returns one Record per removal attempt, successes and failures
// alike. The walk visits every reachable entry once; a matched directory is
// removed whole and never descended into; root itself is never a candidate.
//
// Individual removal failures and unreadable subtrees are recorded and the
// walk continues. Only an invalid root or context cancellation aborts.
func (s *Sweeper) Sweep(ctx context.Context, root string, rule Rule) ([]Record, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	absRoot = filepath.Clean(absRoot)

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRoot, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: not a directory", ErrInvalidRoot, root)
	}

	s.logger.Info("Starting sweep", "root", absRoot, "rule", rule.String(), "dry_run", s.dryRun)

	var records []Record

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Listing or stat failure: record it and skip the subtree
			// rather than aborting the whole run.
			s.logger.Warn("Cannot read entry", "path", path, "error", err)
			records = append(records, Record{
				Path:    path,
				Kind:    entryKind(d),
				Outcome: OutcomeFailed,
				Err:     err.Error(),
				SweptAt: time.Now().UTC(),
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		// The root is never a removal candidate, even if its own name
		// matches the rule.
		if path == absRoot {
			return nil
		}

		name := d.Name()

		if d.IsDir() {
			if !rule.MatchDir(name) {
				return nil
			}
			records = append(records, s.remove(path, KindDirectory))
			// Matched directories are removed whole; continue at sibling level.
			return fs.SkipDir
		}

		if rule.MatchFile(name) {
			records = append(records, s.remove(path, KindFile))
		}
		return nil
	})

	if walkErr != nil {
		return records, walkErr
	}

	summary := Summarize(records)
	s.logger.Info("Sweep complete", "root", absRoot,
		"removed", summary.Removed,
		"failed", summary.Failed,
		"freed_bytes", summary.BytesFreed,
	)

	return records, nil
}

// remove attempts to delete one matched entry and builds its Record
func (s *Sweeper) remove(path string, kind Kind) Record {
	rec := Record{
		Path:    path,
		Kind:    kind,
		SweptAt: time.Now().UTC(),
	}

	if kind == KindDirectory {
		rec.Size = treeSize(path)
	} else if info, err := os.Lstat(path); err == nil {
		rec.Size = info.Size()
	}

	if s.validator != nil {
		if err := s.validator.ValidateDeleteTarget(path); err != nil {
			s.logger.Error("Removal blocked", "path", path, "error", err)
			rec.Outcome = OutcomeFailed
			rec.Err = err.Error()
			return rec
		}
	}

	if s.nfsTimeout > 0 && disk.IsNFSStale(path, s.nfsTimeout) {
		s.logger.Warn("Skipping entry on stale mount", "path", path)
		rec.Outcome = OutcomeFailed
		rec.Err = "stale network mount"
		return rec
	}

	if s.dryRun {
		if kind == KindDirectory {
			s.logger.Info("[DRY RUN] Would remove directory", "path", path, "size", rec.Size)
		} else {
			s.logger.Info("[DRY RUN] Would remove file", "path", path, "size", rec.Size)
		}
		rec.Outcome = OutcomeRemoved
		return rec
	}

	var err error
	if kind == KindDirectory {
		err = s.deleter.RemoveAll(path)
	} else {
		err = s.deleter.Remove(path)
	}

	if err != nil {
		s.logger.Error("Failed to remove", "path", path, "error", err)
		rec.Outcome = OutcomeFailed
		rec.Err = err.Error()
		return rec
	}

	if kind == KindDirectory {
		s.logger.Info("Removed directory", "path", path, "size", rec.Size)
	} else {
		s.logger.Info("Removed file", "path", path, "size", rec.Size)
	}
	rec.Outcome = OutcomeRemoved
	return rec
}

// entryKind maps a DirEntry to a record Kind, defaulting to directory when
// the entry could not be read at all.
func entryKind(d fs.DirEntry) Kind {
	if d == nil || d.IsDir() {
		return KindDirectory
	}
	return KindFile
}

// treeSize computes the total size of a directory subtree, best effort.
// Used so removal records report how much space a directory removal frees.
func treeSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

package sweep

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stale-sweep/internal/fsops"
	"stale-sweep/internal/safety"
)

func mustRule(t *testing.T, dirs, exts []string) Rule {
	t.Helper()
	rule, err := NewRule(dirs, exts)
	if err != nil {
		t.Fatalf("NewRule failed: %v", err)
	}
	return rule
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// resolveDir resolves symlinks in a test dir so validator comparisons are
// not confused by a symlinked temp location.
func resolveDir(t *testing.T, dir string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks(%s) failed: %v", dir, err)
	}
	return resolved
}

// TestSweepRemovesMatchedEntries covers the canonical tree:
// a marker directory with nested contents is removed whole, a matching
// file is removed, and everything else is left in place.
func TestSweepRemovesMatchedEntries(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "proj", "marker_dir", "x.tmp"))
	writeFile(t, filepath.Join(root, "proj", "marker_dir", "sub", "y.tmp"))
	writeFile(t, filepath.Join(root, "proj", "keep.txt"))
	writeFile(t, filepath.Join(root, "proj", "obj.compiled"))

	rule := mustRule(t, []string{"marker_dir"}, []string{".compiled"})
	sweeper := NewSweeper(log.Default(), false)

	records, err := sweeper.Sweep(context.Background(), root, rule)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 removal records, got %d: %+v", len(records), records)
	}
	for _, rec := range records {
		if rec.Outcome != OutcomeRemoved {
			t.Errorf("record %s: outcome = %s, expected removed (err=%s)", rec.Path, rec.Outcome, rec.Err)
		}
	}

	if exists(filepath.Join(root, "proj", "marker_dir")) {
		t.Error("marker_dir should have been removed")
	}
	if exists(filepath.Join(root, "proj", "obj.compiled")) {
		t.Error("obj.compiled should have been removed")
	}
	if !exists(filepath.Join(root, "proj", "keep.txt")) {
		t.Error("keep.txt should have been left untouched")
	}
}

func TestSweepInvalidRoot(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		sweeper := NewSweeper(log.Default(), false)
		rule := mustRule(t, []string{"marker_dir"}, nil)

		_, err := sweeper.Sweep(context.Background(), filepath.Join(t.TempDir(), "nope"), rule)
		if err == nil {
			t.Fatal("expected error for missing root")
		}
		if !strings.Contains(err.Error(), ErrInvalidRoot.Error()) {
			t.Errorf("expected ErrInvalidRoot, got: %v", err)
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		root := t.TempDir()
		file := filepath.Join(root, "afile")
		writeFile(t, file)

		sweeper := NewSweeper(log.Default(), false)
		rule := mustRule(t, []string{"marker_dir"}, nil)

		_, err := sweeper.Sweep(context.Background(), file, rule)
		if err == nil {
			t.Fatal("expected error for non-directory root")
		}
	})
}

func TestSweepEmptyRoot(t *testing.T) {
	root := t.TempDir()

	sweeper := NewSweeper(log.Default(), false)
	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, []string{"marker_dir"}, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for an empty root, got %d", len(records))
	}
}

func TestSweepNoMatchesLeavesTreeUntouched(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "keep.txt"))
	writeFile(t, filepath.Join(root, "a", "keep.go"))

	sweeper := NewSweeper(log.Default(), false)
	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, []string{"marker_dir"}, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if !exists(filepath.Join(root, "a", "b", "keep.txt")) || !exists(filepath.Join(root, "a", "keep.go")) {
		t.Error("non-matching files must survive the sweep")
	}
}

// TestSweepIdempotent proves a second pass finds nothing left to remove
func TestSweepIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "marker_dir", "x.tmp"))
	writeFile(t, filepath.Join(root, "obj.compiled"))

	rule := mustRule(t, []string{"marker_dir"}, []string{".compiled"})
	sweeper := NewSweeper(log.Default(), false)

	first, err := sweeper.Sweep(context.Background(), root, rule)
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 records on first pass, got %d", len(first))
	}

	second, err := sweeper.Sweep(context.Background(), root, rule)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected empty record set on second pass, got %d: %+v", len(second), second)
	}
}

// TestDryRunNeverDeletes proves the dry-run contract:
// when dryRun=true, ZERO delete calls must occur and the tree is intact
func TestDryRunNeverDeletes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "marker_dir", "x.tmp"))
	writeFile(t, filepath.Join(root, "obj.compiled"))

	fakeDeleter := &fsops.FakeDeleter{}
	sweeper := NewSweeper(log.Default(), true) // dryRun=true
	sweeper.SetDeleter(fakeDeleter)

	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, []string{"marker_dir"}, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(fakeDeleter.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: expected 0 delete calls, got %d: %v",
			len(fakeDeleter.Calls), fakeDeleter.Calls)
	}

	if len(records) != 2 {
		t.Errorf("dry run should still report 2 matches, got %d", len(records))
	}

	if !exists(filepath.Join(root, "marker_dir")) || !exists(filepath.Join(root, "obj.compiled")) {
		t.Error("dry run must leave the tree intact")
	}
}

// TestMatchedDirectoryNotDescended proves a matched directory produces one
// record even when its contents would match on their own.
func TestMatchedDirectoryNotDescended(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "marker_dir", "inner.compiled"))
	writeFile(t, filepath.Join(root, "marker_dir", "marker_dir", "deep.compiled"))

	sweeper := NewSweeper(log.Default(), false)
	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, []string{"marker_dir"}, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record for the matched directory, got %d: %+v", len(records), records)
	}
	if records[0].Kind != KindDirectory {
		t.Errorf("record kind = %s, expected directory", records[0].Kind)
	}
}

// TestRootNeverMatched proves the root is not a candidate for its own rule
func TestRootNeverMatched(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "marker_dir")
	writeFile(t, filepath.Join(root, "keep.txt"))

	sweeper := NewSweeper(log.Default(), false)
	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, []string{"marker_dir"}, nil))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("root must never match its own rule, got %d records", len(records))
	}
	if !exists(root) {
		t.Error("root directory must survive")
	}
}

func TestCaseInsensitiveMatching(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "MARKER_DIR", "x.tmp"))
	writeFile(t, filepath.Join(root, "obj.COMPILED"))

	sweeper := NewSweeper(log.Default(), false)
	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, []string{"marker_dir"}, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records with case-insensitive matching, got %d", len(records))
	}
}

// TestRemovalFailureIsRecordedAndSweepContinues proves a failed removal
// does not abort the walk; remaining matches are still attempted.
func TestRemovalFailureIsRecordedAndSweepContinues(t *testing.T) {
	root := t.TempDir()
	locked := filepath.Join(root, "a", "locked.compiled")
	other := filepath.Join(root, "z", "other.compiled")
	writeFile(t, locked)
	writeFile(t, other)

	fakeDeleter := &fsops.FakeDeleter{
		Fail: map[string]error{locked: os.ErrPermission},
	}
	sweeper := NewSweeper(log.Default(), false)
	sweeper.SetDeleter(fakeDeleter)

	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, nil, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	var failed, removed int
	for _, rec := range records {
		if rec.Failed() {
			failed++
			if rec.Err == "" {
				t.Error("failed record must carry error detail")
			}
		} else {
			removed++
		}
	}
	if failed != 1 || removed != 1 {
		t.Errorf("expected 1 failed and 1 removed, got failed=%d removed=%d", failed, removed)
	}
}

// TestUnreadableDirectoryRecordedAndSweepContinues proves a directory that
// cannot be listed yields one failed record for the subtree while the rest
// of the walk proceeds.
func TestUnreadableDirectoryRecordedAndSweepContinues(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "hidden.compiled"))
	writeFile(t, filepath.Join(root, "ok", "obj.compiled"))

	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chmod(locked, 0o755)
	})

	sweeper := NewSweeper(log.Default(), false)
	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, nil, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}

	var failed, removed int
	for _, rec := range records {
		if rec.Failed() {
			failed++
			if rec.Path != locked {
				t.Errorf("failed record path = %s, expected %s", rec.Path, locked)
			}
			if rec.Kind != KindDirectory {
				t.Errorf("failed record kind = %s, expected directory", rec.Kind)
			}
			if rec.Err == "" {
				t.Error("failed record must carry the listing error")
			}
			continue
		}
		removed++
	}
	if failed != 1 || removed != 1 {
		t.Errorf("expected 1 failed and 1 removed, got failed=%d removed=%d", failed, removed)
	}

	if exists(filepath.Join(root, "ok", "obj.compiled")) {
		t.Error("obj.compiled should still have been removed")
	}
	if !exists(locked) {
		t.Error("the unreadable directory itself must survive")
	}
}

func TestSweepCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "obj.compiled"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper := NewSweeper(log.Default(), false)
	_, err := sweeper.Sweep(ctx, root, mustRule(t, nil, []string{".compiled"}))
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !exists(filepath.Join(root, "obj.compiled")) {
		t.Error("canceled sweep must not have removed the file")
	}
}

// TestValidatorBlocksOutsideRoot proves the validator stops removals that
// resolve outside the sweep root.
func TestValidatorBlocksOutsideRoot(t *testing.T) {
	outside := resolveDir(t, t.TempDir())
	root := resolveDir(t, t.TempDir())

	target := filepath.Join(outside, "target.compiled")
	writeFile(t, target)
	link := filepath.Join(root, "evil.compiled")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	fakeDeleter := &fsops.FakeDeleter{}
	sweeper := NewSweeper(log.Default(), false)
	sweeper.SetDeleter(fakeDeleter)
	sweeper.SetValidator(safety.NewValidator([]string{root}, nil))

	records, err := sweeper.Sweep(context.Background(), root, mustRule(t, nil, []string{".compiled"}))
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	if len(fakeDeleter.Calls) != 0 {
		t.Errorf("validator should have blocked the removal, got calls: %v", fakeDeleter.Calls)
	}
	if len(records) != 1 || !records[0].Failed() {
		t.Errorf("expected one failed record, got %+v", records)
	}
	if !exists(target) {
		t.Error("target outside the root must survive")
	}
}

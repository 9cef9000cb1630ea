package sweep

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	errEmptyRule    = errors.New("rule must have at least one dir name or extension")
	errBadDirName   = errors.New("dir name must be a bare name without separators")
	errBadExtension = errors.New("extension must be non-empty")
)

// Rule decides which filesystem entries count as stale artifacts.
// Directory names and file extensions are compared case-insensitively,
// matching common conventions on case-insensitive filesystems.
type Rule struct {
	dirNames   []string
	extensions []string
}

// NewRule builds a Rule from directory names (removed recursively when
// matched) and file extensions (individual files removed when matched).
// Extensions are normalized to carry a leading dot.
func NewRule(dirNames, extensions []string) (Rule, error) {
	if len(dirNames) == 0 && len(extensions) == 0 {
		return Rule{}, errEmptyRule
	}

	r := Rule{
		dirNames:   make([]string, 0, len(dirNames)),
		extensions: make([]string, 0, len(extensions)),
	}

	for _, name := range dirNames {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsRune(name, os.PathSeparator) || strings.ContainsRune(name, '/') {
			return Rule{}, fmt.Errorf("%w: %q", errBadDirName, name)
		}
		r.dirNames = append(r.dirNames, name)
	}

	for _, ext := range extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			return Rule{}, errBadExtension
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.extensions = append(r.extensions, ext)
	}

	return r, nil
}

// MatchDir reports whether a directory with the given base name is stale
func (r Rule) MatchDir(name string) bool {
	for _, want := range r.dirNames {
		if strings.EqualFold(name, want) {
			return true
		}
	}
	return false
}

// MatchFile reports whether a file with the given base name is stale
func (r Rule) MatchFile(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" || ext == name {
		// No extension, or a dotfile whose whole name is the "extension".
		return false
	}
	for _, want := range r.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func (r Rule) String() string {
	return fmt.Sprintf("dirs=%v exts=%v", r.dirNames, r.extensions)
}

package discovery

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/localmind/indexd/internal/types"
)

// Scanner walks the watched root and reports every regular file with a
// supported extension. The watched tree is read-only from indexd's
// perspective; the scanner never modifies it.
type Scanner struct {
	root          string
	supportedExts map[string]struct{}
}

// NewScanner creates a scanner for the given root and extension set.
func NewScanner(root string, supportedExts []string) *Scanner {
	exts := make(map[string]struct{}, len(supportedExts))
	for _, ext := range supportedExts {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Scanner{
		root:          root,
		supportedExts: exts,
	}
}

// ValidateRoot checks if the watched root exists and is readable
func (s *Scanner) ValidateRoot() error {
	info, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("watched root does not exist: %s", s.root)
		}
		return fmt.Errorf("cannot access watched root %s: %w", s.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watched root is not a directory: %s", s.root)
	}

	f, err := os.Open(s.root)
	if err != nil {
		return fmt.Errorf("watched root is not readable: %s (%w)", s.root, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close watched root: %w", err)
	}

	return nil
}

// ScanRoot walks the tree and returns every supported regular file with
// its path relative to the root. Unreadable subtrees are logged and
// skipped for this cycle rather than failing the whole scan. Symlinks are
// resolved once; a symlink to a regular file is reported at the symlink's
// relative path with the target's modification time.
func (s *Scanner) ScanRoot() ([]*types.FileInfo, error) {
	if err := s.ValidateRoot(); err != nil {
		return nil, fmt.Errorf("watched root validation failed: %w", err)
	}

	var files []*types.FileInfo

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("WARNING: skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		info, statErr := s.statEntry(path, d)
		if statErr != nil {
			log.Printf("WARNING: skipping %s: %v", path, statErr)
			return nil
		}
		if info == nil {
			// Not a regular file (socket, device, symlink to directory).
			return nil
		}

		if !s.isSupported(path) {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, relErr)
		}

		files = append(files, &types.FileInfo{
			Path:         path,
			RelativePath: filepath.ToSlash(rel),
			Name:         d.Name(),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan watched root %s: %w", s.root, err)
	}

	return files, nil
}

// statEntry resolves a directory entry to the FileInfo of a regular
// file, following symlinks once. Returns nil for non-regular targets.
func (s *Scanner) statEntry(path string, d fs.DirEntry) (os.FileInfo, error) {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("dangling or unreadable symlink: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil, nil
		}
		return info, nil
	}

	if !d.Type().IsRegular() {
		return nil, nil
	}

	info, err := d.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	return info, nil
}

// ReadFileContent reads and returns the content of a file under the root.
func (s *Scanner) ReadFileContent(relativePath string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(relativePath))
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(content), nil
}

func (s *Scanner) isSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := s.supportedExts[ext]
	return ok
}

package source

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileBytes is the per-file size limit when none is configured.
const DefaultMaxFileBytes = 1 << 20 // 1MB

// Unit is one source file read for analysis.
type Unit struct {
	Path    string
	Content string
	Size    int64
}

// Options controls discovery.
type Options struct {
	Root         string
	Extensions   []string
	Include      []string
	Exclude      []string
	MaxFileBytes int64
}

// DiscoveryError is returned when no eligible source file exists. A run
// cannot produce a meaningful report without input, so it is fatal.
type DiscoveryError struct {
	Root       string
	Extensions []string
	Err        error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovering sources under %s: %v", e.Root, e.Err)
	}
	return fmt.Sprintf("no source files matching %s under %s", strings.Join(e.Extensions, ", "), e.Root)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Discover returns every eligible file under opts.Root, sorted by path.
func Discover(opts Options) ([]Unit, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &DiscoveryError{Root: root, Extensions: opts.Extensions, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Root: root, Extensions: opts.Extensions, Err: fmt.Errorf("not a directory")}
	}

	var units []Unit
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !hasExtension(path, opts.Extensions) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if len(opts.Include) > 0 && !MatchesAny(rel, opts.Include) {
			return nil
		}
		if len(opts.Exclude) > 0 && MatchesAny(rel, opts.Exclude) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Size() > maxBytes {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if isBinary(data) {
			return nil
		}
		units = append(units, Unit{
			Path:    filepath.ToSlash(path),
			Content: string(data),
			Size:    fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, &DiscoveryError{Root: root, Extensions: opts.Extensions, Err: err}
	}
	if len(units) == 0 {
		return nil, &DiscoveryError{Root: root, Extensions: opts.Extensions}
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units, nil
}

// hasExtension matches case-insensitively. An empty list accepts every file.
func hasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}

// MatchesAny reports whether path matches any of the glob patterns. A leading
// "**/" matches at any depth.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
		// "dir/**" excludes a whole subtree.
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
	}
	return false
}

func isBinary(data []byte) bool {
	const sniff = 8000
	if len(data) > sniff {
		data = data[:sniff]
	}
	return bytes.IndexByte(data, 0) >= 0
}

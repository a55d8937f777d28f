package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Truncation reasons reported in Statistics.Truncated
const (
	LimitDepth    = "max depth"
	LimitFiles    = "max files"
	LimitDuration = "max scan duration"
)

// Discover walks the workspace root and returns the DSL files to index in
// lexical order. A non-empty truncated reason means a scan limit stopped
// the walk early and the list is incomplete.
func (x *Indexer) Discover(ctx context.Context) (files []string, truncated string, err error) {
	return x.discover(ctx)
}

func (x *Indexer) walkWorkspace(ctx context.Context) ([]string, string, error) {
	root := x.opts.Root
	gi := loadGitignore(root)

	var (
		files     []string
		truncated string
	)
	start := x.now()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			x.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if x.opts.MaxScanDuration > 0 && x.now().Sub(start) > x.opts.MaxScanDuration {
			truncated = LimitDuration
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if x.ignoredDir(path, d.Name()) {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/")+1 > x.opts.MaxDepth {
				if truncated == "" {
					truncated = LimitDepth
				}
				return filepath.SkipDir
			}
			return nil
		}

		if !x.hasExtension(path) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if len(files) >= x.opts.MaxFiles {
			truncated = LimitFiles
			return filepath.SkipAll
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, truncated, err
	}
	return files, truncated, nil
}

// ignoredDir reports whether discovery and the watcher skip a directory
func (x *Indexer) ignoredDir(path, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ignored := range x.opts.IgnoreDirs {
		if name == ignored {
			return true
		}
	}
	return x.opts.CacheDir != "" && isWithin(path, x.opts.CacheDir)
}

// IgnoresDir reports whether the workspace rules exclude the directory at
// path, including .gitignore matches
func (x *Indexer) IgnoresDir(path string) bool {
	path = NormalizeURI(path)
	if path == x.opts.Root {
		return false
	}
	if x.ignoredDir(path, filepath.Base(path)) {
		return true
	}
	rel, err := filepath.Rel(x.opts.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	gi := loadGitignore(x.opts.Root)
	return gi != nil && gi.MatchesPath(filepath.ToSlash(rel)+"/")
}

// IsSourceFile reports whether path is a DSL file discovery would index,
// ignoring the directory rules
func (x *Indexer) IsSourceFile(path string) bool {
	if !x.hasExtension(path) {
		return false
	}
	rel, err := filepath.Rel(x.opts.Root, NormalizeURI(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	gi := loadGitignore(x.opts.Root)
	return gi == nil || !gi.MatchesPath(filepath.ToSlash(rel))
}

func (x *Indexer) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range x.opts.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// loadGitignore compiles the root .gitignore, or returns nil when there is
// none
func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

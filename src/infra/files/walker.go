package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName holds gitignore style patterns relative to its directory.
const IgnoreFileName = ".lrcsyncignore"

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".wma":  true,
	".aif":  true,
	".aiff": true,
	".ape":  true,
	".wv":   true,
	".mka":  true,
	".dsf":  true,
}

// extensions we never sniff, they are common in music folders and never audio
var nonAudioExtensions = map[string]bool{
	".lrc":  true,
	".txt":  true,
	".nfo":  true,
	".cue":  true,
	".log":  true,
	".m3u":  true,
	".m3u8": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
	".db":   true,
}

// Walker enumerates audio files below a root directory.
type Walker struct {
	includeHidden bool
}

// NewWalker creates a walker. Dotfiles and dot directories are skipped unless includeHidden is set.
func NewWalker(includeHidden bool) *Walker {
	return &Walker{includeHidden: includeHidden}
}

// Discover sends the path of every audio file below root to out. It returns
// when the tree is exhausted or ctx is cancelled. Unreadable subdirectories
// are logged and skipped.
func (w *Walker) Discover(ctx context.Context, root string, out chan<- string) error {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", root)
	}

	chain := newIgnoreChain(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		if !w.includeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if chain.ignored(path, d.IsDir()) {
			slog.Debug("Ignored by "+IgnoreFileName, "path", path)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !IsAudio(path) {
			return nil
		}

		select {
		case out <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// Accepts reports whether path, a file below root, would be discovered.
func (w *Walker) Accepts(root, path string) bool {
	root, path = filepath.Clean(root), filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	if !w.includeHidden {
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if isHidden(part) {
				return false
			}
		}
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	chain := newIgnoreChain(root)
	for dir := filepath.Dir(path); dir != root; dir = filepath.Dir(dir) {
		if chain.ignored(dir, true) {
			return false
		}
	}
	if chain.ignored(path, false) {
		return false
	}
	return IsAudio(path)
}

// IsAudio decides by extension first and falls back to sniffing the content
// of files with an unknown extension.
func IsAudio(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if audioExtensions[ext] {
		return true
	}
	if nonAudioExtensions[ext] {
		return false
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		slog.Debug("Failed to detect content type", "path", path, "error", err)
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// ignoreChain lazily compiles the ignore file of every directory between the
// root and a path. Patterns are matched relative to the directory holding them.
type ignoreChain struct {
	root     string
	matchers map[string]*ignore.GitIgnore
}

func newIgnoreChain(root string) *ignoreChain {
	return &ignoreChain{root: filepath.Clean(root), matchers: map[string]*ignore.GitIgnore{}}
}

func (c *ignoreChain) matcher(dir string) *ignore.GitIgnore {
	if m, ok := c.matchers[dir]; ok {
		return m
	}
	var m *ignore.GitIgnore
	file := filepath.Join(dir, IgnoreFileName)
	compiled, err := ignore.CompileIgnoreFile(file)
	switch {
	case err == nil:
		m = compiled
	case !errors.Is(err, fs.ErrNotExist):
		slog.Warn("Failed to read ignore file", "path", file, "error", err)
	}
	c.matchers[dir] = m
	return m
}

func (c *ignoreChain) ignored(path string, isDir bool) bool {
	path = filepath.Clean(path)
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if m := c.matcher(dir); m != nil {
			if rel, err := filepath.Rel(dir, path); err == nil {
				rel = filepath.ToSlash(rel)
				if m.MatchesPath(rel) || (isDir && m.MatchesPath(rel+"/")) {
					return true
				}
			}
		}
		if dir == c.root || len(dir) <= len(c.root) || dir == filepath.Dir(dir) {
			return false
		}
	}
}

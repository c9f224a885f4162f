package sidecar

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/contre95/lrcsync/src/music"
)

var (
	// ErrNoTextAvailable means the record matched but carries no lyrics, usually an instrumental.
	ErrNoTextAvailable = errors.New("record has no lyrics text")
	// ErrSidecarExists means a sidecar appeared at the target path and overwriting is not allowed.
	ErrSidecarExists = errors.New("sidecar already exists")
)

// WriteError wraps a filesystem failure while writing a sidecar.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write sidecar %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer persists matched lyrics next to the audio file they belong to.
type Writer struct {
	force bool
}

// NewWriter creates a sidecar writer. With force set, existing sidecars are replaced.
func NewWriter(force bool) *Writer {
	return &Writer{force: force}
}

// Write stores the synced lyrics of record, or the plain ones when there are
// none, at the track's sidecar path and returns that path. The target is
// checked again right before writing, a file created since discovery is
// never overwritten without force. The content lands through a temporary
// file and a rename so readers never see a partial sidecar.
func (w *Writer) Write(track *music.Track, record *music.LyricsRecord) (string, error) {
	target := track.LyricsPath()

	text, ok := record.Text()
	if !ok {
		return target, ErrNoTextAvailable
	}

	if !w.force {
		if _, err := os.Lstat(target); err == nil {
			return target, ErrSidecarExists
		} else if !errors.Is(err, os.ErrNotExist) {
			return target, &WriteError{Path: target, Err: err}
		}
	}

	if err := writeAtomic(target, []byte(text)); err != nil {
		return target, &WriteError{Path: target, Err: err}
	}
	slog.Debug("Wrote sidecar", "path", target, "synced", record.IsSynced(), "bytes", len(text))
	return target, nil
}

func writeAtomic(target string, content []byte) error {
	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return nil
}

package music

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LyricsExtension is the extension of the sidecar file written next to an audio file.
const LyricsExtension = ".lrc"

// Track represents a single local audio file considered for lyrics.
// Absent tags are nil, an empty tag is never stored.
type Track struct {
	Path          string
	Title         *string
	Artist        *string
	Album         *string
	Duration      *float64 // seconds
	HasLyricsFile bool
}

// HasMetadata reports whether at least one of title, artist, album or duration is known.
func (t *Track) HasMetadata() bool {
	return t.Title != nil || t.Artist != nil || t.Album != nil || t.Duration != nil
}

// LyricsPath returns the sidecar path: the audio path with its extension replaced by .lrc.
func (t *Track) LyricsPath() string {
	return SidecarPath(t.Path)
}

// SidecarPath derives the lyrics file path for an audio file path.
func SidecarPath(audioPath string) string {
	dir, file := filepath.Split(audioPath)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	if stem == "" {
		// dotfile such as ".mp3": the whole name is the stem
		stem = file
	}
	return dir + stem + LyricsExtension
}

// String is used in logs.
func (t *Track) String() string {
	return fmt.Sprintf("%s (title=%s artist=%s album=%s duration=%s)",
		t.Path, deref(t.Title), deref(t.Artist), deref(t.Album), formatDuration(t.Duration))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// OptionalString returns nil for blank values and a pointer to the trimmed value otherwise.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatDuration(d *float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.1fs", *d)
}

package sidecar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contre95/lrcsync/src/music"
)

func trackIn(t *testing.T, name string) *music.Track {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &music.Track{Path: path, Title: music.Ptr("Song")}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestWrite_PrefersSyncedLyrics(t *testing.T) {
	track := trackIn(t, "song.flac")
	record := &music.LyricsRecord{SyncedLyrics: music.Ptr("[00:01.00] synced"), PlainLyrics: music.Ptr("plain")}

	path, err := NewWriter(false).Write(track, record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(filepath.Dir(track.Path), "song.lrc"); path != want {
		t.Errorf("expected sidecar at %s, got %s", want, path)
	}
	if got := readFile(t, path); got != "[00:01.00] synced" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestWrite_FallsBackToPlainLyrics(t *testing.T) {
	track := trackIn(t, "song.mp3")
	path, err := NewWriter(false).Write(track, &music.LyricsRecord{PlainLyrics: music.Ptr("plain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, path); got != "plain" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestWrite_InstrumentalHasNoText(t *testing.T) {
	track := trackIn(t, "song.mp3")
	path, err := NewWriter(true).Write(track, &music.LyricsRecord{Instrumental: true})
	if !errors.Is(err, ErrNoTextAvailable) {
		t.Fatalf("expected ErrNoTextAvailable, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("no sidecar must be created without text")
	}
}

func TestWrite_RespectsExistingSidecar(t *testing.T) {
	track := trackIn(t, "song.mp3")
	existing := track.LyricsPath()
	if err := os.WriteFile(existing, []byte("mine"), 0o644); err != nil {
		t.Fatal(err)
	}

	record := &music.LyricsRecord{SyncedLyrics: music.Ptr("[00:01.00] theirs")}
	if _, err := NewWriter(false).Write(track, record); !errors.Is(err, ErrSidecarExists) {
		t.Fatalf("expected ErrSidecarExists, got %v", err)
	}
	if got := readFile(t, existing); got != "mine" {
		t.Errorf("existing sidecar was modified: %q", got)
	}

	if _, err := NewWriter(true).Write(track, record); err != nil {
		t.Fatalf("unexpected error with force: %v", err)
	}
	if got := readFile(t, existing); got != "[00:01.00] theirs" {
		t.Errorf("expected sidecar to be replaced, got %q", got)
	}
}

func TestWrite_Idempotent(t *testing.T) {
	track := trackIn(t, "song.mp3")
	record := &music.LyricsRecord{SyncedLyrics: music.Ptr("[00:01.00] la")}
	w := NewWriter(false)

	path, err := w.Write(track, record)
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write(track, record); !errors.Is(err, ErrSidecarExists) {
		t.Fatalf("expected second write to be refused, got %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Error("second run modified the sidecar")
	}
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	track := trackIn(t, "song.mp3")
	if _, err := NewWriter(false).Write(track, &music.LyricsRecord{PlainLyrics: music.Ptr("plain")}); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Dir(track.Path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the audio file and its sidecar, got %v", names)
	}
}

func TestWrite_MissingDirectory(t *testing.T) {
	track := &music.Track{Path: filepath.Join(t.TempDir(), "gone", "song.mp3")}
	_, err := NewWriter(false).Write(track, &music.LyricsRecord{PlainLyrics: music.Ptr("plain")})
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
}

package syncing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contre95/lrcsync/src/features/lyrics"
	"github.com/contre95/lrcsync/src/features/sidecar"
	"github.com/contre95/lrcsync/src/music"
	"github.com/fatih/color"
)

type sliceDiscoverer struct {
	paths []string
	err   error
}

func (d *sliceDiscoverer) Discover(ctx context.Context, root string, out chan<- string) error {
	if d.err != nil {
		return d.err
	}
	for _, p := range d.paths {
		select {
		case out <- p:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// mockReader returns a titled track for every path and notices existing sidecars.
type mockReader struct {
	failing map[string]bool
}

func (r *mockReader) ReadTrack(ctx context.Context, path string) (*music.Track, error) {
	if r.failing[path] {
		return nil, errors.New("corrupt tags")
	}
	_, err := os.Stat(music.SidecarPath(path))
	return &music.Track{
		Path:          path,
		Title:         music.Ptr(filepath.Base(path)),
		Artist:        music.Ptr("Band"),
		Duration:      music.Ptr(180.0),
		HasLyricsFile: err == nil,
	}, nil
}

type funcResolver func(ctx context.Context, track *music.Track) music.Outcome

func (f funcResolver) Resolve(ctx context.Context, track *music.Track) music.Outcome {
	return f(ctx, track)
}

type mockWriter struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (w *mockWriter) Write(track *music.Track, record *music.LyricsRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, track.Path)
	if w.failFor[track.Path] {
		return track.LyricsPath(), &sidecar.WriteError{Path: track.LyricsPath(), Err: errors.New("disk full")}
	}
	return track.LyricsPath(), nil
}

type mockRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *mockRecorder) RecordOutcome(kind, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[kind+"/"+detail]++
}

var syncedRecord = &music.LyricsRecord{ID: 1, Duration: 180, SyncedLyrics: music.Ptr("[00:01.00] la")}

func outcomesByName(outcomes map[string]music.Outcome) funcResolver {
	return func(ctx context.Context, track *music.Track) music.Outcome {
		if o, ok := outcomes[filepath.Base(track.Path)]; ok {
			return o
		}
		return music.NoMatch{}
	}
}

func TestRun_FoldsEveryOutcome(t *testing.T) {
	discoverer := &sliceDiscoverer{paths: []string{"/m/a.mp3", "/m/b.mp3", "/m/c.mp3", "/m/d.mp3", "/m/e.mp3", "/m/f.mp3"}}
	resolver := outcomesByName(map[string]music.Outcome{
		"a.mp3": music.Matched{Record: syncedRecord, Source: music.SourceExact},
		"b.mp3": music.Matched{Record: syncedRecord, Source: music.SourceSearch},
		"c.mp3": music.Matched{Record: &music.LyricsRecord{Instrumental: true}, Source: music.SourceExact},
		"d.mp3": music.Skipped{Reason: music.SkipLookupError, Err: errors.New("timeout")},
		"e.mp3": music.Skipped{Reason: music.SkipLyricsExists},
	})
	writer := &mockWriter{failFor: map[string]bool{"/m/b.mp3": true}}
	recorder := &mockRecorder{}
	svc := NewService(discoverer, &mockReader{}, resolver, writer, recorder, Options{Jobs: 3})

	report, err := svc.Run(context.Background(), "/m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Total != 6 || report.Matched != 3 || report.NoMatch != 1 || report.SkippedTotal() != 2 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.Writes[WriteWritten] != 1 || report.Writes[WriteFailed] != 1 || report.Writes[WriteNoText] != 1 {
		t.Errorf("unexpected write counts %v", report.Writes)
	}
	if report.Skipped[music.SkipLookupError] != 1 || report.Skipped[music.SkipLyricsExists] != 1 {
		t.Errorf("unexpected skip counts %v", report.Skipped)
	}
	if len(writer.calls) != 2 {
		t.Errorf("instrumental records must not reach the writer, got calls %v", writer.calls)
	}
	if recorder.counts["matched/written"] != 1 || recorder.counts["no-match/"] != 1 || recorder.counts["skipped/lookup-error"] != 1 {
		t.Errorf("unexpected recorded outcomes %v", recorder.counts)
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestRun_UnreadableTagsAreSkipped(t *testing.T) {
	discoverer := &sliceDiscoverer{paths: []string{"/m/broken.mp3"}}
	reader := &mockReader{failing: map[string]bool{"/m/broken.mp3": true}}
	provider := &countingProvider{}
	svc := NewService(discoverer, reader, lyrics.NewService(provider, lyrics.Options{Search: true}), &mockWriter{}, nil, Options{Jobs: 1})

	report, err := svc.Run(context.Background(), "/m")
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped[music.SkipNoMetadata] != 1 {
		t.Errorf("expected no-metadata skip, got %v", report.Skipped)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called for a track without metadata")
	}
}

func TestRun_DryRunNeverWrites(t *testing.T) {
	discoverer := &sliceDiscoverer{paths: []string{"/m/a.mp3", "/m/b.mp3"}}
	resolver := funcResolver(func(context.Context, *music.Track) music.Outcome {
		return music.Matched{Record: syncedRecord, Source: music.SourceExact}
	})
	writer := &mockWriter{}
	svc := NewService(discoverer, &mockReader{}, resolver, writer, nil, Options{Jobs: 2, DryRun: true})

	report, err := svc.Run(context.Background(), "/m")
	if err != nil {
		t.Fatal(err)
	}
	if len(writer.calls) != 0 {
		t.Errorf("dry run wrote sidecars for %v", writer.calls)
	}
	if report.Writes[WriteDryRun] != 2 {
		t.Errorf("expected 2 would-write results, got %v", report.Writes)
	}
}

func TestRun_DiscoveryError(t *testing.T) {
	svc := NewService(&sliceDiscoverer{err: errors.New("no such directory")}, &mockReader{}, outcomesByName(nil), &mockWriter{}, nil, Options{Jobs: 2})
	if _, err := svc.Run(context.Background(), "/missing"); err == nil {
		t.Fatal("expected discovery error")
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &mockWriter{}
	svc := NewService(&sliceDiscoverer{paths: []string{"/m/a.mp3"}}, &mockReader{}, funcResolver(func(context.Context, *music.Track) music.Outcome {
		return music.Matched{Record: syncedRecord}
	}), writer, nil, Options{Jobs: 1})

	report, err := svc.Run(ctx, "/m")
	if err != nil {
		t.Fatalf("interruption is not an error: %v", err)
	}
	if !report.Interrupted || report.Total != 0 || len(writer.calls) != 0 {
		t.Errorf("expected nothing processed after cancellation, got %+v", report)
	}
}

func TestProcessFile_RetriesLookupErrors(t *testing.T) {
	var attempts int
	resolver := funcResolver(func(context.Context, *music.Track) music.Outcome {
		attempts++
		if attempts < 3 {
			return music.Skipped{Reason: music.SkipLookupError, Err: errors.New("503")}
		}
		return music.Matched{Record: syncedRecord, Source: music.SourceExact}
	})
	svc := NewService(nil, &mockReader{}, resolver, &mockWriter{}, nil, Options{Retries: 2, RetryBackoff: time.Millisecond})

	res := svc.ProcessFile(context.Background(), "/m/a.mp3")
	if _, ok := res.Outcome.(music.Matched); !ok || res.Attempts != 3 {
		t.Fatalf("expected match on third attempt, got %+v", res)
	}
	if res.Write != WriteWritten {
		t.Errorf("expected sidecar to be written, got %q", res.Write)
	}
}

func TestProcessFile_GivesUpAfterRetries(t *testing.T) {
	var attempts int
	resolver := funcResolver(func(context.Context, *music.Track) music.Outcome {
		attempts++
		return music.Skipped{Reason: music.SkipLookupError, Err: errors.New("503")}
	})
	svc := NewService(nil, &mockReader{}, resolver, &mockWriter{}, nil, Options{Retries: 1, RetryBackoff: time.Millisecond})

	res := svc.ProcessFile(context.Background(), "/m/a.mp3")
	if res.Detail() != string(music.SkipLookupError) || attempts != 2 || res.Err == nil {
		t.Fatalf("expected lookup error after 2 attempts, got %+v (attempts %d)", res, attempts)
	}
}

func TestProcessFile_NoRetryForOtherOutcomes(t *testing.T) {
	var attempts int
	resolver := funcResolver(func(context.Context, *music.Track) music.Outcome {
		attempts++
		return music.NoMatch{}
	})
	svc := NewService(nil, &mockReader{}, resolver, &mockWriter{}, nil, Options{Retries: 5, RetryBackoff: time.Millisecond})

	svc.ProcessFile(context.Background(), "/m/a.mp3")
	if attempts != 1 {
		t.Errorf("NoMatch must not be retried, got %d attempts", attempts)
	}
}

func TestProcessFile_CancelInterruptsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	resolver := funcResolver(func(rctx context.Context, _ *music.Track) music.Outcome {
		if rctx.Err() != nil {
			t.Error("in flight lookups must not see the cancellation")
		}
		cancel()
		return music.Skipped{Reason: music.SkipLookupError, Err: errors.New("503")}
	})
	svc := NewService(nil, &mockReader{}, resolver, &mockWriter{}, nil, Options{Retries: 3, RetryBackoff: time.Hour})

	done := make(chan FileResult, 1)
	go func() { done <- svc.ProcessFile(ctx, "/m/a.mp3") }()
	select {
	case res := <-done:
		if res.Attempts != 1 {
			t.Errorf("expected a single attempt, got %d", res.Attempts)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("backoff was not interrupted")
	}
}

func TestWatch_ProcessesEvents(t *testing.T) {
	events := make(chan string, 2)
	events <- "/m/new.mp3"
	events <- "/m/other.mp3"
	close(events)

	resolver := outcomesByName(map[string]music.Outcome{"new.mp3": music.Matched{Record: syncedRecord}})
	writer := &mockWriter{}
	svc := NewService(nil, &mockReader{}, resolver, writer, nil, Options{})

	report := NewReport("watch")
	svc.Watch(context.Background(), events, report)
	if report.Total != 2 || report.Matched != 1 || report.NoMatch != 1 {
		t.Errorf("unexpected counts %+v", report)
	}
	if len(writer.calls) != 1 {
		t.Errorf("expected one write, got %v", writer.calls)
	}
}

// countingProvider answers every search with the durations it was built with.
type countingProvider struct {
	mu        sync.Mutex
	calls     int
	durations []float64
}

func (p *countingProvider) ExactLookup(ctx context.Context, q music.Query) (*music.LyricsRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil, nil
}

func (p *countingProvider) Search(ctx context.Context, q music.Query) ([]*music.LyricsRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	records := make([]*music.LyricsRecord, 0, len(p.durations))
	for i, d := range p.durations {
		records = append(records, &music.LyricsRecord{
			ID:           int64(i + 1),
			Duration:     d,
			SyncedLyrics: music.Ptr("[00:01.00] candidate " + string(rune('A'+i))),
		})
	}
	return records, nil
}

func (p *countingProvider) Name() string { return "counting" }

func TestRun_EndToEndAndIdempotent(t *testing.T) {
	root := t.TempDir()
	var paths []string
	for _, name := range []string{"one.mp3", "two.flac"} {
		path := filepath.Join(root, name)
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	provider := &countingProvider{durations: []float64{190, 176}}
	resolver := lyrics.NewService(provider, lyrics.Options{Search: true, Tolerance: 5})
	svc := NewService(&sliceDiscoverer{paths: paths}, &mockReader{}, resolver, sidecar.NewWriter(false), nil, Options{Jobs: 2})

	first, err := svc.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if first.Writes[WriteWritten] != 2 {
		t.Fatalf("expected two sidecars, got %+v", first)
	}
	content, err := os.ReadFile(filepath.Join(root, "one.lrc"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "[00:01.00] candidate B" {
		t.Errorf("expected the 176s candidate, got %q", content)
	}

	stamp := time.Now().Add(-time.Hour)
	for _, name := range []string{"one.lrc", "two.lrc"} {
		if err := os.Chtimes(filepath.Join(root, name), stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}
	callsAfterFirst := provider.calls

	second, err := svc.Run(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if second.Skipped[music.SkipLyricsExists] != 2 {
		t.Errorf("expected both files skipped on the second run, got %+v", second)
	}
	if provider.calls != callsAfterFirst {
		t.Error("second run must not call the provider")
	}
	for _, name := range []string{"one.lrc", "two.lrc"} {
		info, err := os.Stat(filepath.Join(root, name))
		if err != nil {
			t.Fatal(err)
		}
		if !info.ModTime().Equal(stamp) {
			t.Errorf("%s was modified by the second run", name)
		}
	}
}

func TestReportSummary(t *testing.T) {
	r := NewReport("abc")
	r.Add(FileResult{Outcome: music.Matched{Record: syncedRecord}, Write: WriteWritten})
	r.Add(FileResult{Outcome: music.Matched{Record: syncedRecord}, Write: WriteFailed})
	r.Add(FileResult{Outcome: music.NoMatch{}})
	r.Add(FileResult{Outcome: music.Skipped{Reason: music.SkipNoMetadata}})
	r.Finish()

	summary := r.Summary()
	for _, want := range []string{
		"run abc: 4 files",
		"matched 2 (written 1, no text 0, would write 0, already exists 0)",
		"no match 1",
		"skipped 1 (no-metadata 1, lrc-exists-no-force 0, lookup-error 0)",
		"write errors 1",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	color.NoColor = true
	var buf bytes.Buffer
	r.Print(&buf)
	if strings.TrimSpace(buf.String()) != summary {
		t.Errorf("printed summary differs from Summary():\n%s", buf.String())
	}
}

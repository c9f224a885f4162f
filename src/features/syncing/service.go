package syncing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arunsworld/nursery"
	"github.com/contre95/lrcsync/src/features/sidecar"
	"github.com/contre95/lrcsync/src/music"
	"github.com/google/uuid"
)

// Discoverer enumerates candidate audio files below a root.
type Discoverer interface {
	Discover(ctx context.Context, root string, out chan<- string) error
}

// TrackReader turns a path into a track with whatever metadata the file carries.
type TrackReader interface {
	ReadTrack(ctx context.Context, path string) (*music.Track, error)
}

// Resolver decides the outcome of a single track.
type Resolver interface {
	Resolve(ctx context.Context, track *music.Track) music.Outcome
}

// SidecarWriter persists the lyrics of a matched record.
type SidecarWriter interface {
	Write(track *music.Track, record *music.LyricsRecord) (string, error)
}

// OutcomeRecorder is told about every folded file result.
type OutcomeRecorder interface {
	RecordOutcome(kind, detail string)
}

// Options tunes the run. Jobs below one is treated as one.
type Options struct {
	Jobs         int
	Retries      int
	RetryBackoff time.Duration
	DryRun       bool
}

// Service walks a tree and resolves every audio file it finds, writing
// sidecars for matches. A failure on one file never stops the others.
type Service struct {
	discoverer Discoverer
	reader     TrackReader
	resolver   Resolver
	writer     SidecarWriter
	recorder   OutcomeRecorder
	opts       Options
}

// NewService creates a new syncing service. recorder may be nil.
func NewService(discoverer Discoverer, reader TrackReader, resolver Resolver, writer SidecarWriter, recorder OutcomeRecorder, opts Options) *Service {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Service{
		discoverer: discoverer,
		reader:     reader,
		resolver:   resolver,
		writer:     writer,
		recorder:   recorder,
		opts:       opts,
	}
}

// Run processes every file below root with a bounded pool of workers and
// returns the folded report. Cancelling ctx stops handing out new files,
// files already being processed finish. The returned error is only set when
// discovery itself could not start, per file problems end up in the report.
func (s *Service) Run(ctx context.Context, root string) (*Report, error) {
	report := NewReport(uuid.NewString())
	logger := slog.With("run", report.RunID)
	logger.Info("Starting run", "root", root, "jobs", s.opts.Jobs, "dryRun", s.opts.DryRun)

	paths := make(chan string, s.opts.Jobs*2)
	results := make(chan FileResult, s.opts.Jobs*2)
	var workers sync.WaitGroup
	workers.Add(s.opts.Jobs)

	jobs := []nursery.ConcurrentJob{
		func(ctx context.Context, errs chan error) {
			defer close(paths)
			if err := s.discoverer.Discover(ctx, root, paths); err != nil && ctx.Err() == nil {
				errs <- fmt.Errorf("discovery failed: %w", err)
			}
		},
		func(context.Context, chan error) {
			workers.Wait()
			close(results)
		},
		func(context.Context, chan error) {
			for res := range results {
				s.fold(logger, report, res)
			}
		},
	}
	for i := 0; i < s.opts.Jobs; i++ {
		jobs = append(jobs, func(jobCtx context.Context, _ chan error) {
			defer workers.Done()
			s.work(jobCtx, paths, results)
		})
	}

	err := nursery.RunConcurrentlyWithContext(ctx, jobs...)
	report.Interrupted = ctx.Err() != nil
	report.Finish()
	if err != nil {
		return report, err
	}
	logger.Info("Run finished", "files", report.Total, "matched", report.Matched, "elapsed", report.Elapsed)
	return report, nil
}

// work pulls paths until the queue is drained or ctx is cancelled.
func (s *Service) work(ctx context.Context, paths <-chan string, results chan<- FileResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			results <- s.ProcessFile(ctx, path)
		}
	}
}

// Watch processes every path received on events until ctx is cancelled or
// events is closed, folding the results into report.
func (s *Service) Watch(ctx context.Context, events <-chan string, report *Report) {
	logger := slog.With("run", report.RunID)
	logger.Info("Watching for new audio files")
	for {
		select {
		case <-ctx.Done():
			report.Finish()
			return
		case path, ok := <-events:
			if !ok {
				report.Finish()
				return
			}
			s.fold(logger, report, s.ProcessFile(ctx, path))
		}
	}
}

// ProcessFile reads, resolves and, for matches, writes the sidecar of one
// file. Provider calls and the write are detached from ctx so an interrupt
// lets the file complete. ctx only cuts short the wait between retries.
func (s *Service) ProcessFile(ctx context.Context, path string) FileResult {
	work := context.WithoutCancel(ctx)

	track, err := s.reader.ReadTrack(work, path)
	if err != nil {
		slog.Warn("Failed to read tags", "path", path, "error", err)
		track = &music.Track{Path: path}
	}

	res := FileResult{Path: path}
	res.Outcome, res.Attempts = s.resolveWithRetry(ctx, work, track)

	matched, ok := res.Outcome.(music.Matched)
	if !ok {
		if skipped, ok := res.Outcome.(music.Skipped); ok {
			res.Err = skipped.Err
		}
		return res
	}

	res.Sidecar = track.LyricsPath()
	if _, hasText := matched.Record.Text(); !hasText {
		res.Write = WriteNoText
		return res
	}
	if s.opts.DryRun {
		res.Write = WriteDryRun
		return res
	}

	res.Sidecar, err = s.writer.Write(track, matched.Record)
	switch {
	case err == nil:
		res.Write = WriteWritten
	case errors.Is(err, sidecar.ErrNoTextAvailable):
		res.Write = WriteNoText
	case errors.Is(err, sidecar.ErrSidecarExists):
		res.Write = WriteExists
	default:
		res.Write = WriteFailed
		res.Err = err
	}
	return res
}

// resolveWithRetry retries lookup errors with a linearly growing pause.
func (s *Service) resolveWithRetry(ctx, work context.Context, track *music.Track) (music.Outcome, int) {
	for attempt := 1; ; attempt++ {
		outcome := s.resolver.Resolve(work, track)
		skipped, ok := outcome.(music.Skipped)
		if !ok || skipped.Reason != music.SkipLookupError || attempt > s.opts.Retries {
			return outcome, attempt
		}

		wait := s.opts.RetryBackoff * time.Duration(attempt)
		slog.Debug("Retrying lookup", "path", track.Path, "attempt", attempt, "wait", wait, "error", skipped.Err)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return outcome, attempt
		}
	}
}

// fold is only ever called from one goroutine per report.
func (s *Service) fold(logger *slog.Logger, report *Report, res FileResult) {
	report.Add(res)

	detail := res.Detail()
	if s.recorder != nil {
		s.recorder.RecordOutcome(string(res.Outcome.Kind()), detail)
	}

	attrs := []any{"path", res.Path, "outcome", res.Outcome.Kind()}
	if detail != "" {
		attrs = append(attrs, "detail", detail)
	}
	if res.Attempts > 1 {
		attrs = append(attrs, "attempts", res.Attempts)
	}
	switch {
	case res.Write == WriteFailed:
		logger.Error("Failed to write sidecar", append(attrs, "error", res.Err)...)
	case res.Err != nil:
		logger.Warn("Lookup failed", append(attrs, "error", res.Err)...)
	case res.Write == WriteWritten || res.Write == WriteDryRun:
		logger.Info("Lyrics found", append(attrs, "sidecar", res.Sidecar)...)
	default:
		logger.Debug("File processed", attrs...)
	}
}

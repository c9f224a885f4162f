package lyrics

import (
	"context"
	"log/slog"
	"math"

	"github.com/contre95/lrcsync/src/music"
)

// Options controls how tracks are resolved. It is fixed for the lifetime of a Service.
type Options struct {
	Force     bool
	Search    bool
	Ignore    music.IgnoreSet
	Tolerance float64 // seconds, inclusive
}

// Service decides which provider record, if any, belongs to a local track.
// It holds no per-track state and is safe for concurrent use.
type Service struct {
	provider LyricsProvider
	opts     Options
}

// NewService creates a new lyrics resolution service
func NewService(provider LyricsProvider, opts Options) *Service {
	return &Service{
		provider: provider,
		opts:     opts,
	}
}

// Resolve returns exactly one outcome for the track. The exact lookup always
// completes before a search is attempted.
func (s *Service) Resolve(ctx context.Context, track *music.Track) music.Outcome {
	if !track.HasMetadata() {
		return music.Skipped{Reason: music.SkipNoMetadata}
	}
	if track.HasLyricsFile && !s.opts.Force {
		return music.Skipped{Reason: music.SkipLyricsExists}
	}

	record, err := s.provider.ExactLookup(ctx, music.ExactQuery(track))
	if err != nil {
		slog.Debug("Exact lookup failed", "provider", s.provider.Name(), "path", track.Path, "error", err)
		return music.Skipped{Reason: music.SkipLookupError, Err: err}
	}
	if record != nil {
		return music.Matched{Record: record, Source: music.SourceExact}
	}

	if !s.opts.Search {
		return music.NoMatch{}
	}

	query := music.SearchQuery(track, s.opts.Ignore)
	candidates, err := s.provider.Search(ctx, query)
	if err != nil {
		slog.Debug("Search failed", "provider", s.provider.Name(), "path", track.Path, "error", err)
		return music.Skipped{Reason: music.SkipLookupError, Err: err}
	}

	if track.Duration == nil && len(candidates) > 0 {
		slog.Debug("No local duration, taking the first search result without a tolerance check", "path", track.Path, "candidates", len(candidates))
	}
	best := SelectCandidate(candidates, track.Duration, s.opts.Tolerance)
	if best == nil {
		slog.Debug("No search candidate within tolerance", "path", track.Path, "candidates", len(candidates), "tolerance", s.opts.Tolerance)
		return music.NoMatch{}
	}
	return music.Matched{Record: best, Source: music.SourceSearch}
}

// SelectCandidate picks the candidate whose duration is closest to duration.
// Candidates further than tolerance are discarded, a difference equal to the
// tolerance is kept. Ties keep the earlier candidate. Without a local duration
// the first candidate wins since there is nothing to compare against.
func SelectCandidate(candidates []*music.LyricsRecord, duration *float64, tolerance float64) *music.LyricsRecord {
	if duration == nil {
		for _, c := range candidates {
			if c != nil {
				return c
			}
		}
		return nil
	}

	var best *music.LyricsRecord
	bestDelta := math.Inf(1)
	for _, c := range candidates {
		if c == nil {
			continue
		}
		delta := math.Abs(c.Duration - *duration)
		if delta > tolerance {
			continue
		}
		if delta < bestDelta {
			best = c
			bestDelta = delta
		}
	}
	return best
}

package syncing

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/contre95/lrcsync/src/music"
	"github.com/fatih/color"
)

// WriteResult tells what happened to the sidecar of a matched file.
type WriteResult string

const (
	WriteNone    WriteResult = ""
	WriteWritten WriteResult = "written"
	WriteNoText  WriteResult = "no-text"
	WriteDryRun  WriteResult = "would-write"
	WriteExists  WriteResult = "exists"
	WriteFailed  WriteResult = "write-error"
)

// FileResult is what one worker hands back for one file.
type FileResult struct {
	Path     string
	Outcome  music.Outcome
	Write    WriteResult // only for matches
	Sidecar  string
	Attempts int
	Err      error
}

// Detail is the skip reason or write result, empty for NoMatch.
func (r FileResult) Detail() string {
	switch o := r.Outcome.(type) {
	case music.Skipped:
		return string(o.Reason)
	case music.Matched:
		return string(r.Write)
	}
	return ""
}

// Report accumulates file results for one run. It is not safe for
// concurrent use, results are folded by a single goroutine.
type Report struct {
	RunID       string
	Started     time.Time
	Elapsed     time.Duration
	Interrupted bool

	Total   int
	Matched int
	NoMatch int
	Skipped map[music.SkipReason]int
	Writes  map[WriteResult]int
}

// NewReport creates an empty report stamped with the current time.
func NewReport(runID string) *Report {
	return &Report{
		RunID:   runID,
		Started: time.Now(),
		Skipped: map[music.SkipReason]int{},
		Writes:  map[WriteResult]int{},
	}
}

// Add folds one result into the counts.
func (r *Report) Add(res FileResult) {
	r.Total++
	switch o := res.Outcome.(type) {
	case music.Matched:
		r.Matched++
		r.Writes[res.Write]++
	case music.NoMatch:
		r.NoMatch++
	case music.Skipped:
		r.Skipped[o.Reason]++
	}
}

// Finish stamps the elapsed time.
func (r *Report) Finish() {
	r.Elapsed = time.Since(r.Started)
}

// SkippedTotal sums every skip reason.
func (r *Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

var skipOrder = []music.SkipReason{music.SkipNoMetadata, music.SkipLyricsExists, music.SkipLookupError}

func (r *Report) lines() (header, matched, noMatch, skipped, failures string) {
	header = fmt.Sprintf("run %s: %d files in %s", r.RunID, r.Total, r.Elapsed.Round(time.Millisecond))
	if r.Interrupted {
		header += " (interrupted)"
	}
	matched = fmt.Sprintf("matched %d (written %d, no text %d, would write %d, already exists %d)",
		r.Matched, r.Writes[WriteWritten], r.Writes[WriteNoText], r.Writes[WriteDryRun], r.Writes[WriteExists])
	noMatch = fmt.Sprintf("no match %d", r.NoMatch)

	parts := make([]string, 0, len(skipOrder))
	for _, reason := range skipOrder {
		parts = append(parts, fmt.Sprintf("%s %d", reason, r.Skipped[reason]))
	}
	skipped = fmt.Sprintf("skipped %d (%s)", r.SkippedTotal(), strings.Join(parts, ", "))
	failures = fmt.Sprintf("write errors %d", r.Writes[WriteFailed])
	return
}

// Summary renders the report as plain text, one line per category.
func (r *Report) Summary() string {
	header, matched, noMatch, skipped, failures := r.lines()
	return strings.Join([]string{header, matched, noMatch, skipped, failures}, "\n")
}

// Print writes the summary to w with a colour per category.
func (r *Report) Print(w io.Writer) {
	header, matched, noMatch, skipped, failures := r.lines()
	color.New(color.Bold).Fprintln(w, header)
	color.New(color.FgGreen).Fprintln(w, matched)
	color.New(color.FgYellow).Fprintln(w, noMatch)
	color.New(color.FgCyan).Fprintln(w, skipped)
	if r.Writes[WriteFailed] > 0 {
		color.New(color.FgRed).Fprintln(w, failures)
	} else {
		fmt.Fprintln(w, failures)
	}
}

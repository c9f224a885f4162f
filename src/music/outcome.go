package music

// Outcome is the result of resolving one track. It is one of Matched, NoMatch or Skipped.
type Outcome interface {
	Kind() OutcomeKind
	outcome()
}

// OutcomeKind names an Outcome variant for reporting.
type OutcomeKind string

const (
	KindMatched OutcomeKind = "matched"
	KindNoMatch OutcomeKind = "no-match"
	KindSkipped OutcomeKind = "skipped"
)

// MatchSource tells which provider operation produced a match.
type MatchSource string

const (
	SourceExact  MatchSource = "exact"
	SourceSearch MatchSource = "search"
)

// SkipReason explains why a track was not resolved.
type SkipReason string

const (
	SkipNoMetadata   SkipReason = "no-metadata"
	SkipLyricsExists SkipReason = "lrc-exists-no-force"
	SkipLookupError  SkipReason = "lookup-error"
)

// Matched carries the selected record. Record may have no lyrics text (instrumental).
type Matched struct {
	Record *LyricsRecord
	Source MatchSource
}

// NoMatch means the provider was asked and nothing suitable came back.
type NoMatch struct{}

// Skipped means resolution was not attempted or could not complete.
// Err is set for SkipLookupError.
type Skipped struct {
	Reason SkipReason
	Err    error
}

func (Matched) Kind() OutcomeKind { return KindMatched }
func (NoMatch) Kind() OutcomeKind { return KindNoMatch }
func (Skipped) Kind() OutcomeKind { return KindSkipped }

func (Matched) outcome() {}
func (NoMatch) outcome() {}
func (Skipped) outcome() {}

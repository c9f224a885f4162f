package music

// LyricsRecord is one lyrics entry returned by a lyrics provider.
type LyricsRecord struct {
	ID           int64
	TrackName    string
	ArtistName   string
	AlbumName    string
	Duration     float64 // seconds
	SyncedLyrics *string
	PlainLyrics  *string
	Instrumental bool
}

// Text returns the synced lyrics when present, else the plain lyrics.
// The boolean is false when the record carries no lyrics text at all,
// which is the normal shape of an instrumental record.
func (r *LyricsRecord) Text() (string, bool) {
	if r.SyncedLyrics != nil && *r.SyncedLyrics != "" {
		return *r.SyncedLyrics, true
	}
	if r.PlainLyrics != nil && *r.PlainLyrics != "" {
		return *r.PlainLyrics, true
	}
	return "", false
}

// IsSynced reports whether Text returns time-tagged lyrics.
func (r *LyricsRecord) IsSynced() bool {
	return r.SyncedLyrics != nil && *r.SyncedLyrics != ""
}

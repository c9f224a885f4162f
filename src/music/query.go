package music

import "strings"

// Query is a partial lookup request. Nil fields are left out of the request
// entirely; they are never sent as empty values.
type Query struct {
	TrackName  *string
	ArtistName *string
	AlbumName  *string
	Duration   *float64
}

// ExactQuery carries every field the track has. The ignore set does not apply here.
func ExactQuery(t *Track) Query {
	return Query{
		TrackName:  t.Title,
		ArtistName: t.Artist,
		AlbumName:  t.Album,
		Duration:   t.Duration,
	}
}

// SearchQuery carries the track's fields minus everything in ignore.
func SearchQuery(t *Track, ignore IgnoreSet) Query {
	q := ExactQuery(t)
	if ignore.Has(FieldTitle) {
		q.TrackName = nil
	}
	if ignore.Has(FieldArtist) {
		q.ArtistName = nil
	}
	if ignore.Has(FieldAlbum) {
		q.AlbumName = nil
	}
	if ignore.Has(FieldDuration) {
		q.Duration = nil
	}
	return q
}

// Text is the free-text search string built from the remaining text fields,
// in title, artist, album order. Empty when no text field is left.
func (q Query) Text() string {
	parts := make([]string, 0, 3)
	for _, v := range []*string{q.TrackName, q.ArtistName, q.AlbumName} {
		if v != nil && *v != "" {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether no field is set.
func (q Query) IsEmpty() bool {
	return q.TrackName == nil && q.ArtistName == nil && q.AlbumName == nil && q.Duration == nil
}

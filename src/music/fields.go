package music

import (
	"fmt"
	"strings"
)

// Field is one queryable piece of track metadata.
type Field uint8

const (
	FieldTitle Field = 1 << iota
	FieldArtist
	FieldAlbum
	FieldDuration
)

var fieldNames = map[Field]string{
	FieldTitle:    "title",
	FieldArtist:   "artist",
	FieldAlbum:    "album",
	FieldDuration: "duration",
}

// fieldAliases maps every accepted spelling to its field. The *_name forms
// are the provider's own parameter names.
var fieldAliases = map[string]Field{
	"title":       FieldTitle,
	"track":       FieldTitle,
	"track_name":  FieldTitle,
	"artist":      FieldArtist,
	"artist_name": FieldArtist,
	"album":       FieldAlbum,
	"album_name":  FieldAlbum,
	"duration":    FieldDuration,
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", uint8(f))
}

// ParseField resolves a field name or alias, case-insensitively.
func ParseField(name string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown field %q: expected one of title, artist, album, duration", name)
	}
	return f, nil
}

// IgnoreSet is the set of fields withheld from search requests.
type IgnoreSet uint8

// ParseIgnoreSet builds an IgnoreSet from field names. Each entry may itself be
// a comma separated list. Blank entries are skipped.
func ParseIgnoreSet(names []string) (IgnoreSet, error) {
	var set IgnoreSet
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			f, err := ParseField(name)
			if err != nil {
				return 0, err
			}
			set = set.With(f)
		}
	}
	return set, nil
}

// Has reports whether f is ignored.
func (s IgnoreSet) Has(f Field) bool {
	return s&IgnoreSet(f) != 0
}

// With returns a copy of s that also ignores f.
func (s IgnoreSet) With(f Field) IgnoreSet {
	return s | IgnoreSet(f)
}

// Names lists the ignored fields in canonical order.
func (s IgnoreSet) Names() []string {
	names := []string{}
	for _, f := range []Field{FieldTitle, FieldArtist, FieldAlbum, FieldDuration} {
		if s.Has(f) {
			names = append(names, f.String())
		}
	}
	return names
}

func (s IgnoreSet) String() string {
	return strings.Join(s.Names(), ",")
}

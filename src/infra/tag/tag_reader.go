package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/contre95/lrcsync/src/music"
	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// TagReader builds a music.Track from the tags embedded in an audio file.
// Text fields come from dhowden/tag, duration from format specific readers.
type TagReader struct{}

// NewTagReader creates a new TagReader
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadTrack reads title, artist, album and duration from filePath and records
// whether a lyrics sidecar already sits next to it. A file without any tags
// is not an error, it simply yields a track without metadata.
func (r *TagReader) ReadTrack(ctx context.Context, filePath string) (*music.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	track := &music.Track{Path: filePath}

	fileType := tag.UnknownFileType
	tags, err := tag.ReadFrom(file)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		slog.Debug("No tags found", "path", filePath)
	case err != nil:
		return nil, fmt.Errorf("failed to read tags: %w", err)
	default:
		fileType = tags.FileType()
		track.Title = music.OptionalString(tags.Title())
		track.Artist = music.OptionalString(tags.Artist())
		track.Album = music.OptionalString(tags.Album())
	}

	switch fileType {
	case tag.FLAC:
		r.readFLAC(filePath, track)
	case tag.MP3:
		track.Duration = readMP3Length(filePath)
	default:
		switch strings.ToLower(filepath.Ext(filePath)) {
		case ".flac":
			r.readFLAC(filePath, track)
		case ".wav":
			track.Duration = readWAVDuration(filePath)
		}
	}

	track.HasLyricsFile = fileExists(track.LyricsPath())
	return track, nil
}

// readFLAC fills the duration from STREAMINFO and any text field dhowden/tag
// left empty from the vorbis comment block.
func (r *TagReader) readFLAC(filePath string, track *music.Track) {
	fh, err := os.Open(filePath)
	if err != nil {
		slog.Debug("Failed to open FLAC file", "path", filePath, "error", err)
		return
	}
	defer fh.Close()

	f, err := goflac.ParseMetadata(fh)
	if err != nil {
		slog.Debug("Failed to parse FLAC metadata", "path", filePath, "error", err)
		return
	}

	if info, err := f.GetStreamInfo(); err == nil && info.SampleRate > 0 && info.SampleCount > 0 {
		track.Duration = music.Ptr(float64(info.SampleCount) / float64(info.SampleRate))
	}

	if track.Title != nil && track.Artist != nil && track.Album != nil {
		return
	}
	for _, meta := range f.Meta {
		if meta.Type != goflac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			slog.Debug("Failed to parse vorbis comment", "path", filePath, "error", err)
			return
		}
		fillFromVorbis(&track.Title, cmt, flacvorbis.FIELD_TITLE)
		fillFromVorbis(&track.Artist, cmt, flacvorbis.FIELD_ARTIST)
		fillFromVorbis(&track.Album, cmt, flacvorbis.FIELD_ALBUM)
		return
	}
}

func fillFromVorbis(dst **string, cmt *flacvorbis.MetaDataBlockVorbisComment, field string) {
	if *dst != nil {
		return
	}
	values, err := cmt.Get(field)
	if err != nil {
		return
	}
	for _, v := range values {
		if s := music.OptionalString(v); s != nil {
			*dst = s
			return
		}
	}
}

// readMP3Length returns the TLEN frame in seconds. TLEN holds milliseconds.
func readMP3Length(filePath string) *float64 {
	id3, err := id3v2.Open(filePath, id3v2.Options{Parse: true, ParseFrames: []string{"Length"}})
	if err != nil {
		slog.Debug("Failed to open ID3 tag", "path", filePath, "error", err)
		return nil
	}
	defer id3.Close()

	frame := id3.GetTextFrame(id3.CommonID("Length"))
	ms, err := strconv.ParseFloat(strings.TrimSpace(frame.Text), 64)
	if err != nil || ms <= 0 {
		return nil
	}
	return music.Ptr(ms / 1000)
}

// readWAVDuration derives the duration from the size of the PCM chunk.
func readWAVDuration(filePath string) *float64 {
	fh, err := os.Open(filePath)
	if err != nil {
		slog.Debug("Failed to open WAV file", "path", filePath, "error", err)
		return nil
	}
	defer fh.Close()

	d := wav.NewDecoder(fh)
	if !d.IsValidFile() {
		return nil
	}
	if err := d.FwdToPCM(); err != nil {
		slog.Debug("Failed to locate WAV PCM chunk", "path", filePath, "error", err)
		return nil
	}
	frameSize := int64(d.BitDepth/8) * int64(d.NumChans)
	if frameSize == 0 || d.SampleRate == 0 {
		return nil
	}
	return music.Ptr(float64(d.PCMLen()/frameSize) / float64(d.SampleRate))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

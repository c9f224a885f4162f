package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/contre95/lrcsync/src/features/lyrics"
	"github.com/contre95/lrcsync/src/music"
)

const (
	// DefaultLRCLibURL is the public LRCLIB instance
	DefaultLRCLibURL = "https://lrclib.net"
	homepage         = "https://github.com/contre95/lrcsync"

	opGet    = "get"
	opSearch = "search"
)

// UserAgent builds the identification sent on every LRCLIB request.
func UserAgent(version string) string {
	return fmt.Sprintf("lrcsync/%s (%s)", version, homepage)
}

// RequestObserver is told about every finished provider request. result is
// "found", "not-found" or "error".
type RequestObserver interface {
	ObserveRequest(operation, result string, elapsed time.Duration)
}

// LRCLib API response structure, shared by /api/get and /api/search
type lrclibSong struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  *string `json:"plainLyrics"`
	SyncedLyrics *string `json:"syncedLyrics"`
}

func (s *lrclibSong) toRecord() *music.LyricsRecord {
	return &music.LyricsRecord{
		ID:           s.ID,
		TrackName:    s.TrackName,
		ArtistName:   s.ArtistName,
		AlbumName:    s.AlbumName,
		Duration:     s.Duration,
		Instrumental: s.Instrumental,
		PlainLyrics:  nonEmpty(s.PlainLyrics),
		SyncedLyrics: nonEmpty(s.SyncedLyrics),
	}
}

// LRCLibProvider implements lyrics.LyricsProvider against an LRCLIB server
type LRCLibProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
	observer  RequestObserver
}

// NewLRCLibProvider creates a new LRCLib provider. observer may be nil.
func NewLRCLibProvider(baseURL string, timeout time.Duration, userAgent string, observer RequestObserver) *LRCLibProvider {
	if baseURL == "" {
		baseURL = DefaultLRCLibURL
	}
	return &LRCLibProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		observer:  observer,
	}
}

func (p *LRCLibProvider) Name() string { return "lrclib" }

// ExactLookup queries /api/get. A 404 means the server has no such record.
func (p *LRCLibProvider) ExactLookup(ctx context.Context, query music.Query) (*music.LyricsRecord, error) {
	start := time.Now()
	body, status, err := p.get(ctx, "/api/get", exactParams(query))
	if err != nil {
		p.observe(opGet, "error", start)
		return nil, p.fail(opGet, status, err)
	}
	if status == http.StatusNotFound || isEmptyJSON(body) {
		p.observe(opGet, "not-found", start)
		return nil, nil
	}

	var song lrclibSong
	if err := json.Unmarshal(body, &song); err != nil {
		p.observe(opGet, "error", start)
		return nil, p.fail(opGet, 0, fmt.Errorf("failed to decode response: %w", err))
	}
	if song.ID == 0 {
		// every stored record has an id, {} carries nothing to match
		p.observe(opGet, "not-found", start)
		return nil, nil
	}
	p.observe(opGet, "found", start)
	return song.toRecord(), nil
}

// Search queries /api/search with whatever fields the query still carries.
func (p *LRCLibProvider) Search(ctx context.Context, query music.Query) ([]*music.LyricsRecord, error) {
	start := time.Now()
	body, status, err := p.get(ctx, "/api/search", searchParams(query))
	if err != nil {
		p.observe(opSearch, "error", start)
		return nil, p.fail(opSearch, status, err)
	}
	if status == http.StatusNotFound || isEmptyJSON(body) {
		p.observe(opSearch, "not-found", start)
		return []*music.LyricsRecord{}, nil
	}

	var songs []lrclibSong
	if err := json.Unmarshal(body, &songs); err != nil {
		p.observe(opSearch, "error", start)
		return nil, p.fail(opSearch, 0, fmt.Errorf("failed to decode response: %w", err))
	}

	records := make([]*music.LyricsRecord, 0, len(songs))
	for i := range songs {
		if songs[i].ID == 0 {
			continue
		}
		records = append(records, songs[i].toRecord())
	}
	result := "found"
	if len(records) == 0 {
		result = "not-found"
	}
	p.observe(opSearch, result, start)
	return records, nil
}

// get performs the request and returns the body of 2xx and 404 responses.
// Any other status is reported through the returned status and error.
func (p *LRCLibProvider) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	endpoint := p.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Lrclib-Client", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := bytes.TrimSpace(snippet); len(msg) > 0 {
			return nil, resp.StatusCode, errors.New(string(msg))
		}
		return nil, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (p *LRCLibProvider) fail(operation string, status int, err error) error {
	if status >= 200 && status < 300 {
		status = 0
	}
	return &lyrics.ProviderError{Provider: p.Name(), Operation: operation, Status: status, Err: err}
}

func (p *LRCLibProvider) observe(operation, result string, start time.Time) {
	if p.observer != nil {
		p.observer.ObserveRequest(operation, result, time.Since(start))
	}
}

func exactParams(q music.Query) url.Values {
	params := url.Values{}
	setParam(params, "track_name", q.TrackName)
	setParam(params, "artist_name", q.ArtistName)
	setParam(params, "album_name", q.AlbumName)
	if q.Duration != nil {
		params.Set("duration", formatSeconds(*q.Duration))
	}
	return params
}

func searchParams(q music.Query) url.Values {
	params := exactParams(q)
	if text := q.Text(); text != "" {
		params.Set("q", text)
	}
	return params
}

func setParam(params url.Values, key string, value *string) {
	if value != nil && *value != "" {
		params.Set(key, *value)
	}
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

func isEmptyJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestSearchWithoutCredentialsReturnsMock(t *testing.T) {
	for _, cfg := range []*Config{
		{},
		{RapidAPIKey: "key", RapidAPIHost: "YOUR_RAPIDAPI_HOST_HERE"},
	} {
		page, err := NewClient(cfg).Search(context.Background(), "anything", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Results) != 2 || page.Source != Source {
			t.Errorf("mock page = %+v", page)
		}
	}
}

func TestSearchMapsItems(t *testing.T) {
	var items []string
	for i := 0; i < 12; i++ {
		items = append(items, fmt.Sprintf(`{"id":{"videoId":"v%d"},"snippet":{"title":"Song %d","channelTitle":"Artist","thumbnails":{"default":{"url":"d%d"},"medium":{"url":"m%d"}}}}`, i, i, i, i))
	}
	items = append(items, `{"id":{},"snippet":{"title":"channel result"}}`)
	body := `{"items":[` + strings.Join(items, ",") + `],"nextPageToken":"NEXT"}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "lofi beats" {
			t.Errorf("query = %q", got)
		}
		if got := r.URL.Query().Get("token"); got != "PAGE2" {
			t.Errorf("token = %q", got)
		}
		if r.Header.Get("X-RapidAPI-Key") != "k" || r.Header.Get("X-RapidAPI-Host") != "yt.example" {
			t.Errorf("headers = %v", r.Header)
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(&Config{RapidAPIKey: "k", RapidAPIHost: "yt.example", SearchBaseURL: srv.URL})
	page, err := c.Search(context.Background(), "lofi beats", "PAGE2")
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != MaxResults {
		t.Fatalf("results = %d, want %d", len(page.Results), MaxResults)
	}
	first := page.Results[0]
	if first.ID != "v0" || first.Title != "Song 0" || first.Attribution != "Artist" || first.ThumbnailURL != "m0" {
		t.Errorf("first = %+v", first)
	}
	if first.PlayableURL != "https://www.youtube.com/watch?v=v0" {
		t.Errorf("playable = %s", first.PlayableURL)
	}
	if page.NextContinuationToken != "NEXT" {
		t.Errorf("token = %q", page.NextContinuationToken)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(&Config{RapidAPIKey: "k", RapidAPIHost: "h", SearchBaseURL: srv.URL})
	if _, err := c.Search(context.Background(), "x", ""); !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

const sampleVTT = "WEBVTT\nKind: captions\nLanguage: en\n\nSTYLE\n::cue { color: lime }\n\nNOTE this is a comment\nspanning lines\n\n1\n00:00:01.000 --> 00:00:04.000 align:start position:0%\n<v Singer>Hello <c.yellow>darkness</c></v>\n\n2\n00:00:05.000 --> 00:00:08.000\nmy old friend\n\n"

func captionServer(t *testing.T, listStatus int, listBody string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/captions":
			if r.URL.Query().Get("videoId") != "vid1" || r.URL.Query().Get("key") != "api-key" {
				t.Errorf("list query = %s", r.URL.RawQuery)
			}
			w.WriteHeader(listStatus)
			w.Write([]byte(listBody))
		case strings.HasPrefix(r.URL.Path, "/captions/"):
			if r.URL.Path != "/captions/track-en" {
				t.Errorf("downloaded %s, want the English track", r.URL.Path)
			}
			if r.URL.Query().Get("tfmt") != "vtt" {
				t.Errorf("tfmt = %q", r.URL.Query().Get("tfmt"))
			}
			w.Write([]byte(sampleVTT))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCaptionsPrefersEnglish(t *testing.T) {
	list := `{"items":[{"id":"track-fr","snippet":{"language":"fr"}},{"id":"track-en","snippet":{"language":"en"}}]}`
	srv := captionServer(t, http.StatusOK, list)
	c := NewClient(&Config{DataAPIKey: "api-key", DataAPIBaseURL: srv.URL})

	lines, err := c.Captions(context.Background(), "vid1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Hello darkness", "my old friend"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestCaptionsUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"disabled", http.StatusForbidden, `{"error":{"message":"disabled","errors":[{"reason":"captionsDisabled"}]}}`},
		{"not found", http.StatusNotFound, `{"error":{"message":"video not found"}}`},
		{"no tracks", http.StatusOK, `{"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := captionServer(t, tt.status, tt.body)
			c := NewClient(&Config{DataAPIKey: "api-key", DataAPIBaseURL: srv.URL})
			lines, err := c.Captions(context.Background(), "vid1")
			if err != nil || lines != nil {
				t.Errorf("Captions = %v, %v; want nil, nil", lines, err)
			}
		})
	}
}

func TestCaptionsOtherErrors(t *testing.T) {
	srv := captionServer(t, http.StatusForbidden, `{"error":{"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`)
	c := NewClient(&Config{DataAPIKey: "api-key", DataAPIBaseURL: srv.URL})
	if _, err := c.Captions(context.Background(), "vid1"); !errors.Is(err, ErrUpstream) {
		t.Errorf("err = %v, want ErrUpstream", err)
	}
}

func TestCaptionsWithoutKeyReturnsMock(t *testing.T) {
	lines, err := NewClient(&Config{DataAPIKey: "YOUR_YOUTUBE_API_KEY_HERE"}).Captions(context.Background(), "x")
	if err != nil || len(lines) != len(mockCaptionLines) {
		t.Errorf("Captions = %v, %v", lines, err)
	}
}

func TestCleanCaptions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"srt", "1\r\n00:00:01,000 --> 00:00:02,000\r\nFirst line\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,500\r\nSecond line\r\n", []string{"First line", "Second line"}},
		{"bracket timestamps", "[00:00:01.000] intro riff", []string{"intro riff"}},
		{"inline karaoke timing", "Some<00:00:01.500> words", []string{"Some words"}},
		{"region block", "WEBVTT - title\n\nREGION\nid:fred\nwidth:40%\n\n00:00:00.000 --> 00:00:01.000\nKept", []string{"Kept"}},
		{"only metadata", "WEBVTT\n\n1\n\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCaptions(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CleanCaptions = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPickTrack(t *testing.T) {
	if pickTrack(nil) != nil {
		t.Error("expected nil for no tracks")
	}
	tracks := []captionTrack{{ID: "a"}, {ID: "b"}}
	tracks[1].Snippet.Language = "en-GB"
	if got := pickTrack(tracks); got.ID != "b" {
		t.Errorf("picked %s, want b", got.ID)
	}
	tracks[1].Snippet.Language = "de"
	if got := pickTrack(tracks); got.ID != "a" {
		t.Errorf("picked %s, want first track", got.ID)
	}
}

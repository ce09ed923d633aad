package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zmb3/spotify/v2"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(context.Background(), "user-token", spotify.WithBaseURL(srv.URL+"/"))
}

func TestTopTracks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/top/tracks" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("time_range"); got != "long_term" {
			t.Errorf("time_range = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"t1","uri":"spotify:track:t1","name":"Song","artists":[{"name":"A"},{"name":"B"}],
			"album":{"name":"Album","images":[{"url":"img"}]},"external_urls":{"spotify":"https://open.spotify.com/track/t1"}}]}`)
	})

	tracks, err := c.TopTracks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d", len(tracks))
	}
	got := tracks[0]
	if got.ID != "t1" || got.URI != "spotify:track:t1" || got.Album != "Album" || got.ImageURL != "img" {
		t.Errorf("track = %+v", got)
	}
	if strings.Join(got.Artists, ",") != "A,B" {
		t.Errorf("artists = %v", got.Artists)
	}
}

func TestValidateTrackURIs(t *testing.T) {
	many := make([]string, MaxPlaylistTracks+1)
	for i := range many {
		many[i] = fmt.Sprintf("spotify:track:%d", i)
	}
	tests := []struct {
		name    string
		uris    []string
		wantErr error
	}{
		{"empty", nil, ErrNoTracks},
		{"too many", many, ErrTooManyTracks},
		{"bad uri", []string{"spotify:album:x"}, ErrInvalidURI},
		{"ok", []string{"spotify:track:a", "spotify:track:b"}, nil},
		{"exactly max", many[:MaxPlaylistTracks], nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTrackURIs(tt.uris)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateTopTracksPlaylist(t *testing.T) {
	var created, added bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/me":
			fmt.Fprint(w, `{"id":"user1"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/users/user1/playlists":
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != PlaylistName || body["public"] != false {
				t.Errorf("create body = %v", body)
			}
			created = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"pl1","name":"My Echo Canvas Top Tracks","external_urls":{"spotify":"https://open.spotify.com/playlist/pl1"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl1/tracks":
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if strings.Join(body.URIs, ",") != "spotify:track:a,spotify:track:b" {
				t.Errorf("uris = %v", body.URIs)
			}
			added = true
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"snapshot_id":"snap"}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	pl, err := c.CreateTopTracksPlaylist(context.Background(), []string{"spotify:track:a", "spotify:track:b"})
	if err != nil {
		t.Fatal(err)
	}
	if !created || !added {
		t.Errorf("created=%v added=%v", created, added)
	}
	if pl.ID != "pl1" || pl.TracksAdded != 2 || pl.URL == "" {
		t.Errorf("playlist = %+v", pl)
	}
}

func TestCreatePlaylistRejectsBeforeCallingAPI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	if _, err := c.CreateTopTracksPlaylist(context.Background(), nil); !errors.Is(err, ErrNoTracks) {
		t.Errorf("err = %v", err)
	}
}

package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"EchoCanvas/logger"
	"EchoCanvas/model"
)

const (
	playlistPrompt = `You are a music curator. Given a description of someone's music taste, reply with a JSON object {"playlist": [...]} listing 5 to 10 songs as "Title - Artist" strings.`
	nextSongPrompt = `You are a radio DJ. Given the listening history and the current song, reply with a JSON object {"nextSong": "Title - Artist", "reason": "..."} suggesting one song to play next.`
	remixPrompt    = `You are a music producer. Given a song, reply with a JSON object {"suggestedStyle": "...", "ideas": ["...", "..."], "reasoning": "..."} proposing a remix style with 2 or 3 concrete production ideas.`
	audioPrompt    = `You identify music from short recordings. Listen to the clip and reply with a JSON object {"searchQuery": "...", "analysisNotes": "..."} where searchQuery is the best text query to find the song on a video site.`
)

// Service runs the four prompt flows. Without an API key it answers with
// deterministic mock suggestions.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	return &Service{client: client}
}

func (s *Service) live() bool {
	return s.client.Configured()
}

// GenerateInitialPlaylist suggests songs from a free-text taste description.
func (s *Service) GenerateInitialPlaylist(ctx context.Context, in model.PlaylistRequest) (*model.PlaylistResponse, error) {
	taste := strings.TrimSpace(in.MusicTastePrompt)
	if taste == "" {
		return nil, fmt.Errorf("%w: musicTastePrompt is required", ErrInvalidInput)
	}
	if !s.live() {
		logger.Info("[AI] no API key, returning mock playlist")
		return mockPlaylist(taste), nil
	}

	content, err := s.client.Complete(ctx, playlistPrompt, "Music taste: "+taste)
	if err != nil {
		return nil, err
	}
	var out model.PlaylistResponse
	if err := extractJSON(content, &out); err != nil {
		return nil, err
	}
	out.Playlist = compact(out.Playlist)
	if len(out.Playlist) == 0 {
		return nil, ErrEmptyOutput
	}
	return &out, nil
}

// SuggestNextSong picks one song to follow the current one.
func (s *Service) SuggestNextSong(ctx context.Context, in model.NextSongRequest) (*model.NextSongResponse, error) {
	if strings.TrimSpace(in.CurrentSong) == "" {
		return nil, fmt.Errorf("%w: currentSong is required", ErrInvalidInput)
	}
	if !s.live() {
		return mockNextSong(in), nil
	}

	user := fmt.Sprintf("Listening history:\n%s\n\nCurrent song: %s",
		bulletList(in.ListeningHistory), in.CurrentSong)
	content, err := s.client.Complete(ctx, nextSongPrompt, user)
	if err != nil {
		return nil, err
	}
	var out model.NextSongResponse
	if err := extractJSON(content, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.NextSong) == "" {
		return nil, ErrEmptyOutput
	}
	return &out, nil
}

// SuggestRemixStyle proposes a remix direction for a song.
func (s *Service) SuggestRemixStyle(ctx context.Context, in model.RemixRequest) (*model.RemixResponse, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !s.live() {
		return mockRemix(in), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Song: %s", in.Title)
	if in.Artist != "" {
		fmt.Fprintf(&b, "\nArtist: %s", in.Artist)
	}
	if in.CurrentStyle != "" {
		fmt.Fprintf(&b, "\nCurrent style: %s", in.CurrentStyle)
	}
	content, err := s.client.Complete(ctx, remixPrompt, b.String())
	if err != nil {
		return nil, err
	}
	var out model.RemixResponse
	if err := extractJSON(content, &out); err != nil {
		return nil, err
	}
	out.Ideas = compact(out.Ideas)
	if strings.TrimSpace(out.SuggestedStyle) == "" || len(out.Ideas) == 0 {
		return nil, ErrEmptyOutput
	}
	if len(out.Ideas) > 3 {
		out.Ideas = out.Ideas[:3]
	}
	return &out, nil
}

// AnalyzeAudioForSearch turns a recorded clip into a search query.
func (s *Service) AnalyzeAudioForSearch(ctx context.Context, in model.AudioSearchRequest) (*model.AudioSearchResponse, error) {
	mime, data, err := ParseDataURI(in.AudioDataURI)
	if err != nil {
		return nil, err
	}
	if !s.live() {
		return mockAudioSearch(len(data)), nil
	}

	parts := []model.OpenAIContentPart{
		{Type: "text", Text: "Identify this recording."},
		{Type: "input_audio", InputAudio: &model.OpenAIInputAudio{
			Data:   base64.StdEncoding.EncodeToString(data),
			Format: audioFormat(mime),
		}},
	}
	content, err := s.client.Complete(ctx, audioPrompt, parts)
	if err != nil {
		return nil, err
	}
	var out model.AudioSearchResponse
	if err := extractJSON(content, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.SearchQuery) == "" {
		return nil, ErrEmptyOutput
	}
	return &out, nil
}

func compact(items []string) []string {
	out := items[:0]
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return "- " + strings.Join(items, "\n- ")
}

package ai

import (
	"fmt"

	"EchoCanvas/model"
)

func mockPlaylist(taste string) *model.PlaylistResponse {
	return &model.PlaylistResponse{Playlist: []string{
		"Midnight City - M83",
		"Digital Love - Daft Punk",
		"Nightcall - Kavinsky",
		"Instant Crush - Daft Punk",
		fmt.Sprintf("Something like %q - Echo Canvas Mix", taste),
	}}
}

func mockNextSong(in model.NextSongRequest) *model.NextSongResponse {
	return &model.NextSongResponse{
		NextSong: "Midnight City - M83",
		Reason:   fmt.Sprintf("A bright synth anthem that keeps the energy of %q going.", in.CurrentSong),
	}
}

func mockRemix(in model.RemixRequest) *model.RemixResponse {
	style := "Lo-fi House"
	if in.CurrentStyle == style {
		style = "Synthwave"
	}
	return &model.RemixResponse{
		SuggestedStyle: style,
		Ideas: []string{
			"Add a side-chained four-on-the-floor kick under the original vocal.",
			"Filter the main hook through a slow low-pass sweep for the breakdown.",
			"Layer a warm analog pad a fifth above the root.",
		},
		Reasoning: fmt.Sprintf("%s keeps the melody of %q recognisable while giving it a fresh groove.", style, in.Title),
	}
}

func mockAudioSearch(size int) *model.AudioSearchResponse {
	return &model.AudioSearchResponse{
		SearchQuery:   "upbeat electronic instrumental",
		AnalysisNotes: fmt.Sprintf("Mock analysis of %d bytes of audio; configure AI_API_KEY for real identification.", size),
	}
}

package model

// PlaylistRequest asks for an initial playlist from a free-text taste.
type PlaylistRequest struct {
	MusicTastePrompt string `json:"musicTastePrompt"`
}

type PlaylistResponse struct {
	Playlist []string `json:"playlist"`
}

// NextSongRequest asks what to play after CurrentSong.
type NextSongRequest struct {
	ListeningHistory []string `json:"listeningHistory"`
	CurrentSong      string   `json:"currentSong"`
}

type NextSongResponse struct {
	NextSong string `json:"nextSong"`
	Reason   string `json:"reason"`
}

// RemixRequest asks for a remix direction for one song.
type RemixRequest struct {
	Title        string `json:"title"`
	Artist       string `json:"artist,omitempty"`
	CurrentStyle string `json:"currentStyle,omitempty"`
}

type RemixResponse struct {
	SuggestedStyle string   `json:"suggestedStyle"`
	Ideas          []string `json:"ideas"`
	Reasoning      string   `json:"reasoning"`
}

// AudioSearchRequest carries a recorded clip as a base64 data URI.
type AudioSearchRequest struct {
	AudioDataURI string `json:"audioDataUri"`
}

type AudioSearchResponse struct {
	SearchQuery   string `json:"searchQuery"`
	AnalysisNotes string `json:"analysisNotes"`
}

// OpenAIChatMessage represents a message in the OpenAI chat format.
// Content is either a string or a slice of OpenAIContentPart.
type OpenAIChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// OpenAIContentPart is one part of a multimodal user message.
type OpenAIContentPart struct {
	Type       string            `json:"type"`
	Text       string            `json:"text,omitempty"`
	InputAudio *OpenAIInputAudio `json:"input_audio,omitempty"`
}

// OpenAIInputAudio carries base64 audio inline.
type OpenAIInputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// OpenAIResponseFormat asks the model for a JSON object.
type OpenAIResponseFormat struct {
	Type string `json:"type"`
}

// OpenAIChatRequest represents a request to the OpenAI chat API.
type OpenAIChatRequest struct {
	Model          string                `json:"model"`
	Messages       []OpenAIChatMessage   `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature,omitempty"`
	ResponseFormat *OpenAIResponseFormat `json:"response_format,omitempty"`
	Stream         bool                  `json:"stream"`
}

// OpenAIChatResponse represents a response from the OpenAI chat API.
type OpenAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

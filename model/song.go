package model

import "time"

// Song sources a like can refer to.
const (
	SongSourceYouTube  = "youtube"
	SongSourceUploaded = "uploaded"
)

// ValidSongSource reports whether s names a known song source.
func ValidSongSource(s string) bool {
	return s == SongSourceYouTube || s == SongSourceUploaded
}

// LikedSong is one (user, song, source) like. The triple is unique.
type LikedSong struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       int64     `json:"userId" gorm:"not null;uniqueIndex:uq_user_song_source,priority:1"`
	SongID       string    `json:"songId" gorm:"size:191;not null;uniqueIndex:uq_user_song_source,priority:2"`
	Source       string    `json:"source" gorm:"size:20;not null;uniqueIndex:uq_user_song_source,priority:3"`
	Title        string    `json:"title" gorm:"size:255;not null"`
	Artist       string    `json:"artist,omitempty" gorm:"size:255"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty" gorm:"size:1024"`
	AudioURL     string    `json:"audioUrl,omitempty" gorm:"size:1024"`
	LikedAt      time.Time `json:"likedAt" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (LikedSong) TableName() string {
	return "user_liked_songs"
}

// ToggleLikeRequest is the body of POST /api/likes/toggle.
type ToggleLikeRequest struct {
	SongID       string `json:"songId"`
	Title        string `json:"title"`
	Artist       string `json:"artist,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	Source       string `json:"source"`
}

// ToggleLikeResult reports the like state after a toggle.
type ToggleLikeResult struct {
	Liked  bool   `json:"liked"`
	SongID string `json:"songId"`
}

// DefaultArtist is stored when an upload names no artist.
const DefaultArtist = "Unknown Artist"

// UploadedSong is the metadata of a user-uploaded audio file.
type UploadedSong struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserID     int64     `json:"userId" gorm:"index;not null"`
	Title      string    `json:"title" gorm:"size:255;not null"`
	Artist     string    `json:"artist" gorm:"size:255;not null"`
	AudioURL   string    `json:"audioUrl" gorm:"size:1024;not null"`
	ObjectKey  string    `json:"-" gorm:"size:512"`
	Duration   float32   `json:"duration"`
	UploadedAt time.Time `json:"uploadedAt" gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (UploadedSong) TableName() string {
	return "uploaded_songs"
}

// SaveSongRequest is the body of POST /api/songs.
type SaveSongRequest struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist,omitempty"`
	AudioURL string  `json:"audioUrl"`
	Duration float32 `json:"duration,omitempty"`
}

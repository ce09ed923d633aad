package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EchoCanvas/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidSong is returned when song metadata misses required fields.
var ErrInvalidSong = errors.New("invalid song metadata")

// UploadedSongRepository stores metadata of user uploads.
type UploadedSongRepository interface {
	Create(ctx context.Context, song *model.UploadedSong) error
	GetByID(ctx context.Context, id string) (*model.UploadedSong, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.UploadedSong, error)
}

// PrepareUploadedSong validates a save request and fills defaults.
func PrepareUploadedSong(userID int64, req *model.SaveSongRequest) (*model.UploadedSong, error) {
	if req == nil || userID <= 0 || strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.AudioURL) == "" {
		return nil, fmt.Errorf("%w: title, audioUrl and userId are required", ErrInvalidSong)
	}
	artist := strings.TrimSpace(req.Artist)
	if artist == "" {
		artist = model.DefaultArtist
	}
	return &model.UploadedSong{
		ID:       uuid.New().String(),
		UserID:   userID,
		Title:    strings.TrimSpace(req.Title),
		Artist:   artist,
		AudioURL: req.AudioURL,
		Duration: req.Duration,
	}, nil
}

type gormUploadedSongRepository struct {
	db *gorm.DB
}

func NewGormUploadedSongRepository(db *gorm.DB) UploadedSongRepository {
	return &gormUploadedSongRepository{db: db}
}

func (r *gormUploadedSongRepository) Create(ctx context.Context, song *model.UploadedSong) error {
	if song.ID == "" {
		song.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(song).Error
}

func (r *gormUploadedSongRepository) GetByID(ctx context.Context, id string) (*model.UploadedSong, error) {
	var song model.UploadedSong
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&song).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &song, nil
}

// ListByUser returns a user's uploads, newest first.
func (r *gormUploadedSongRepository) ListByUser(ctx context.Context, userID int64) ([]*model.UploadedSong, error) {
	var songs []*model.UploadedSong
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&songs).Error
	return songs, err
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EchoCanvas/model"

	"gorm.io/gorm"
)

// ErrInvalidLike is returned when a toggle request misses required fields.
var ErrInvalidLike = errors.New("invalid like request")

// LikedSongRepository stores per-user likes keyed by (user, song, source).
type LikedSongRepository interface {
	ToggleLike(ctx context.Context, userID int64, req *model.ToggleLikeRequest) (*model.ToggleLikeResult, error)
	ListLiked(ctx context.Context, userID int64) ([]*model.LikedSong, error)
	IsLiked(ctx context.Context, userID int64, songID, source string) (bool, error)
	LikedIDs(ctx context.Context, userID int64, source string) ([]string, error)
}

// ValidateToggleLike checks the fields a like needs.
func ValidateToggleLike(userID int64, req *model.ToggleLikeRequest) error {
	if req == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidLike)
	}
	var missing []string
	if userID <= 0 {
		missing = append(missing, "userId")
	}
	if strings.TrimSpace(req.SongID) == "" {
		missing = append(missing, "songId")
	}
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Source) == "" {
		missing = append(missing, "source")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidLike, strings.Join(missing, ", "))
	}
	if !model.ValidSongSource(req.Source) {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidLike, req.Source)
	}
	return nil
}

// gormLikedSongRepository GORM 实现
type gormLikedSongRepository struct {
	db *gorm.DB
}

// NewGormLikedSongRepository 创建 GORM 收藏仓库
func NewGormLikedSongRepository(db *gorm.DB) LikedSongRepository {
	return &gormLikedSongRepository{db: db}
}

// ToggleLike removes an existing like or records a new one, atomically.
func (r *gormLikedSongRepository) ToggleLike(ctx context.Context, userID int64, req *model.ToggleLikeRequest) (*model.ToggleLikeResult, error) {
	if err := ValidateToggleLike(userID, req); err != nil {
		return nil, err
	}

	result := &model.ToggleLikeResult{SongID: req.SongID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.LikedSong
		err := tx.Where("user_id = ? AND song_id = ? AND source = ?", userID, req.SongID, req.Source).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("failed to remove like: %w", err)
			}
			result.Liked = false
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := &model.LikedSong{
				UserID:       userID,
				SongID:       req.SongID,
				Source:       req.Source,
				Title:        req.Title,
				Artist:       req.Artist,
				ThumbnailURL: req.ThumbnailURL,
				AudioURL:     req.AudioURL,
			}
			if err := tx.Create(like).Error; err != nil {
				// a concurrent toggle inserted the same like first
				if isDuplicateKey(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
					result.Liked = true
					return nil
				}
				return fmt.Errorf("failed to record like: %w", err)
			}
			result.Liked = true
			return nil
		default:
			return fmt.Errorf("failed to look up like: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListLiked returns a user's likes, newest first.
func (r *gormLikedSongRepository) ListLiked(ctx context.Context, userID int64) ([]*model.LikedSong, error) {
	var songs []*model.LikedSong
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("liked_at DESC, id DESC").
		Find(&songs).Error
	return songs, err
}

// IsLiked 检查是否已收藏
func (r *gormLikedSongRepository) IsLiked(ctx context.Context, userID int64, songID, source string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LikedSong{}).
		Where("user_id = ? AND song_id = ? AND source = ?", userID, songID, source).
		Count(&count).Error
	return count > 0, err
}

// LikedIDs returns liked song ids, optionally restricted to one source.
func (r *gormLikedSongRepository) LikedIDs(ctx context.Context, userID int64, source string) ([]string, error) {
	q := r.db.WithContext(ctx).Model(&model.LikedSong{}).Where("user_id = ?", userID)
	if source != "" && source != "all" {
		q = q.Where("source = ?", source)
	}
	var ids []string
	err := q.Order("liked_at DESC").Pluck("song_id", &ids).Error
	return ids, err
}

package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"EchoCanvas/config"
	"EchoCanvas/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	bucketName  string
)

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "..."
}

// InitMinio 初始化 MinIO 客户端并确保存储桶存在
func InitMinio(cfg *config.Config) error {
	logger.Info("正在连接 MinIO 服务器",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket),
		logger.String("accessKey", mask(cfg.MinioAccessKey)))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("成功创建存储桶", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	bucketName = cfg.MinioBucket
	logger.Info("MinIO 客户端初始化成功")
	return nil
}

// AudioStore keeps uploaded audio in one bucket.
type AudioStore struct {
	client *minio.Client
	bucket string
}

// NewAudioStore wraps the client created by InitMinio. It returns nil when
// MinIO is not initialised.
func NewAudioStore() *AudioStore {
	if minioClient == nil {
		return nil
	}
	return &AudioStore{client: minioClient, bucket: bucketName}
}

// AudioObjectKey builds the object key for a user's upload.
func AudioObjectKey(userID int64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("uploads", fmt.Sprintf("%d", userID), uuid.New().String()+ext)
}

// AudioContentType maps an audio file extension to its MIME type.
func AudioContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".webm":
		return "audio/webm"
	default:
		return "application/octet-stream"
	}
}

// PutAudio uploads r and returns the object key and its direct URL.
func (s *AudioStore) PutAudio(ctx context.Context, userID int64, filename string, r io.Reader, size int64) (string, string, error) {
	key := AudioObjectKey(userID, filename)
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: AudioContentType(filename),
	})
	if err != nil {
		return "", "", fmt.Errorf("上传音频失败: %w", err)
	}
	logger.Info("音频上传成功",
		logger.String("key", key),
		logger.Int64("size", info.Size))

	u := *s.client.EndpointURL()
	u.Path = path.Join("/", s.bucket, key)
	return key, u.String(), nil
}

// DeleteAudio removes an uploaded object.
func (s *AudioStore) DeleteAudio(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", key, err)
	}
	logger.Info("已删除音频对象", logger.String("key", key))
	return nil
}

// PresignedURL returns a time-limited GET URL for key.
func (s *AudioStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}

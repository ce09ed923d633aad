package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int
	TotalSize    int64
	LastModified time.Time
	ByType       map[string]int64
}

// ObjectInfo 对象信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// ListBucketObjects 列出存储桶中的对象并汇总统计
func ListBucketObjects(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	if minioClient == nil {
		return nil, nil, fmt.Errorf("MinIO 客户端未初始化")
	}

	stats := &BucketStats{ByType: make(map[string]int64)}
	var objects []ObjectInfo

	for object := range minioClient.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		info := ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		}
		stats.add(info)
		objects = append(objects, info)
	}
	return objects, stats, nil
}

func (s *BucketStats) add(obj ObjectInfo) {
	s.TotalObjects++
	s.TotalSize += obj.Size
	if obj.LastModified.After(s.LastModified) {
		s.LastModified = obj.LastModified
	}
	s.ByType[inferContentType(obj.Key)] += obj.Size
}

// DeletePrefix removes every object under prefix and returns the count.
func DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if minioClient == nil {
		return 0, fmt.Errorf("MinIO 客户端未初始化")
	}
	objectsCh := make(chan minio.ObjectInfo)
	queued := 0
	go func() {
		defer close(objectsCh)
		for object := range minioClient.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				return
			}
			queued++
			objectsCh <- object
		}
	}()

	failed := 0
	var firstErr error
	for rErr := range minioClient.RemoveObjects(ctx, bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("删除对象 %s 失败: %w", rErr.ObjectName, rErr.Err)
			}
		}
	}
	return queued - failed, firstErr
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// inferContentType 从文件名推断内容类型
func inferContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3", ".wav", ".flac", ".m4a", ".ogg", ".aac", ".webm":
		return "audio"
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return "image"
	default:
		return "other"
	}
}

package plugin

import (
	"context"

	"EchoCanvas/core/youtube"
	"EchoCanvas/logger"
	"EchoCanvas/model"
)

// YouTubePlugin YouTube 搜索插件实现
type YouTubePlugin struct {
	client *youtube.Client
}

// NewYouTubePlugin 创建 YouTube 插件
func NewYouTubePlugin(client *youtube.Client) *YouTubePlugin {
	return &YouTubePlugin{client: client}
}

// GetSource 返回插件来源标识
func (p *YouTubePlugin) GetSource() string {
	return youtube.Source
}

func (p *YouTubePlugin) Search(ctx context.Context, query, continuationToken string) (*model.SearchPage, error) {
	logger.Info("[YouTubePlugin] 搜索歌曲",
		logger.String("query", query),
		logger.Bool("continuation", continuationToken != ""))
	return p.client.Search(ctx, query, continuationToken)
}

func (p *YouTubePlugin) Captions(ctx context.Context, contentID string) ([]string, error) {
	return p.client.Captions(ctx, contentID)
}

package plugin

import (
	"context"
	"errors"
	"fmt"

	"EchoCanvas/cache"
	"EchoCanvas/logger"
	"EchoCanvas/model"
)

// DefaultSource is the provider used when a request names none.
const DefaultSource = model.SongSourceYouTube

// ErrUnknownSource is returned when no provider is registered for a source.
var ErrUnknownSource = errors.New("unknown search source")

// SearchProvider 搜索插件接口
// 定义分页搜索的统一操作
type SearchProvider interface {
	// Search returns one page of results. An empty token asks for the
	// first page.
	Search(ctx context.Context, query, continuationToken string) (*model.SearchPage, error)

	// GetSource 获取插件来源标识
	GetSource() string
}

// CaptionProvider is implemented by providers that can fetch lyrics-like
// caption lines for a result.
type CaptionProvider interface {
	Captions(ctx context.Context, contentID string) ([]string, error)
}

// SearchPluginManager 搜索插件管理器
type SearchPluginManager struct {
	plugins map[string]SearchProvider
	cache   *cache.Cache
}

// NewSearchPluginManager 创建插件管理器. A nil or disabled cache turns
// caching off.
func NewSearchPluginManager(c *cache.Cache) *SearchPluginManager {
	return &SearchPluginManager{
		plugins: make(map[string]SearchProvider),
		cache:   c,
	}
}

// Register 注册插件
func (m *SearchPluginManager) Register(plugin SearchProvider) {
	m.plugins[plugin.GetSource()] = plugin
}

// Get 获取指定来源的插件
func (m *SearchPluginManager) Get(source string) SearchProvider {
	return m.plugins[source]
}

// GetDefault 获取默认插件（YouTube）
func (m *SearchPluginManager) GetDefault() SearchProvider {
	return m.plugins[DefaultSource]
}

func (m *SearchPluginManager) resolve(source string) (SearchProvider, error) {
	if source == "" {
		source = DefaultSource
	}
	p := m.Get(source)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return p, nil
}

// Search runs a query against the named provider, serving repeated pages
// from the cache.
func (m *SearchPluginManager) Search(ctx context.Context, source, query, continuationToken string) (*model.SearchPage, error) {
	p, err := m.resolve(source)
	if err != nil {
		return nil, err
	}
	src := p.GetSource()

	if page, err := m.cache.GetSearchPage(ctx, src, query, continuationToken); err != nil {
		logger.Warn("读取搜索缓存失败", logger.String("source", src), logger.ErrorField(err))
	} else if page != nil {
		logger.Debug("搜索缓存命中", logger.String("source", src), logger.String("query", query))
		return page, nil
	}

	page, err := p.Search(ctx, query, continuationToken)
	if err != nil {
		return nil, err
	}
	if err := m.cache.SetSearchPage(ctx, src, query, continuationToken, page); err != nil {
		logger.Warn("写入搜索缓存失败", logger.String("source", src), logger.ErrorField(err))
	}
	return page, nil
}

// Captions fetches caption lines from the named provider. It returns nil
// lines when the provider has none or cannot serve captions.
func (m *SearchPluginManager) Captions(ctx context.Context, source, contentID string) ([]string, error) {
	p, err := m.resolve(source)
	if err != nil {
		return nil, err
	}
	cp, ok := p.(CaptionProvider)
	if !ok {
		return nil, nil
	}

	if lines, found, err := m.cache.GetCaptions(ctx, contentID); err != nil {
		logger.Warn("读取字幕缓存失败", logger.String("contentId", contentID), logger.ErrorField(err))
	} else if found {
		return lines, nil
	}

	lines, err := cp.Captions(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if err := m.cache.SetCaptions(ctx, contentID, lines); err != nil {
		logger.Warn("写入字幕缓存失败", logger.String("contentId", contentID), logger.ErrorField(err))
	}
	return lines, nil
}

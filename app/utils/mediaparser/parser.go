package mediaparser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"

	"github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

// ErrInvalidShareURL 输入中不包含可识别的分享链接
var ErrInvalidShareURL = errors.New("无效的分享链接")

// 支持解析的分享链接域名
var supportedDomains = []string{"douyin.com", "iesdouyin.com", "v.douyin.com"}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractShareURL 从文本中提取分享链接并校验域名。
// 分享口令通常混有其他文字，这里只取第一个URL。
func ExtractShareURL(text string) (string, error) {
	raw := urlPattern.FindString(text)
	if raw == "" {
		return "", ErrInvalidShareURL
	}
	for _, domain := range supportedDomains {
		if strings.Contains(raw, domain) {
			return raw, nil
		}
	}
	return "", ErrInvalidShareURL
}

// ParseError 解析失败错误
type ParseError struct {
	Message   string
	Cause     error
	Transient bool // 网络类失败可重试，上游明确拒绝或响应结构错误不重试
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("解析失败: %s: %v", e.Message, e.Cause)
	}
	return "解析失败: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Retryable 实现重试判定接口
func (e *ParseError) Retryable() bool {
	return e.Transient
}

// ParsedMedia 上游解析出的媒体信息
type ParsedMedia struct {
	ContentID    string
	Description  string
	Author       string
	MediaType    model.MediaType
	DownloadURLs []string // 视频按清晰度从高到低，图片/实况按顺序
}

// 上游响应结构，参考第三方解析API的返回格式
type parseEnvelope struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data *parseData `json:"data"`
}

type parseData struct {
	AwemeID string `json:"aweme_id"`
	Desc    string `json:"desc"`
	Author  struct {
		Nickname string `json:"nickname"`
	} `json:"author"`
	Video  *parseVideo  `json:"video"`
	Images []parseImage `json:"images"`
}

type parseVideo struct {
	PlayAddr parsePlayAddr `json:"play_addr"`
	BitRate  []struct {
		PlayAddr parsePlayAddr `json:"play_addr"`
	} `json:"bit_rate"`
}

type parseImage struct {
	URLList []string    `json:"url_list"`
	Video   *parseVideo `json:"video"` // 实况照片带视频轨
}

type parsePlayAddr struct {
	URLList []string `json:"url_list"`
}

// Client 第三方解析API客户端
type Client struct {
	cfg    *config.VideoConfig
	log    *logger.Logger
	client *resty.Client
	cache  *cache.Cache // 同一链接短时间内重复解析直接命中缓存
}

// New 创建解析客户端
func New(cfg *config.Config, log *logger.Logger) *Client {
	client := resty.New()
	client.SetTimeout(cfg.Video.ParserTimeout)

	return &Client{
		cfg:    &cfg.Video,
		log:    log,
		client: client,
		cache:  cache.New(cfg.Video.ParseCacheExpire, 2*cfg.Video.ParseCacheExpire),
	}
}

// Resolve 解析分享链接，返回媒体信息
func (c *Client) Resolve(ctx context.Context, shareURL string) (*ParsedMedia, error) {
	if cached, ok := c.cache.Get(shareURL); ok {
		c.log.Infof("解析结果命中缓存: %s", shareURL)
		return cached.(*ParsedMedia), nil
	}

	var envelope parseEnvelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("url", shareURL).
		SetQueryParam("minimal", "false").
		SetResult(&envelope).
		Get(c.cfg.ParserAPIURL)

	if err != nil {
		return nil, &ParseError{Message: "请求解析API失败", Cause: err, Transient: true}
	}
	if resp.StatusCode() >= 500 {
		return nil, &ParseError{Message: fmt.Sprintf("解析API响应状态码: %d", resp.StatusCode()), Transient: true}
	}
	if resp.StatusCode() != 200 {
		return nil, &ParseError{Message: fmt.Sprintf("解析API响应状态码: %d", resp.StatusCode())}
	}
	if envelope.Code != 200 {
		return nil, &ParseError{Message: fmt.Sprintf("解析API返回错误码 %d: %s", envelope.Code, envelope.Msg)}
	}
	if envelope.Data == nil {
		return nil, &ParseError{Message: "解析API返回的数据中没有 data 字段"}
	}

	media, err := extractMedia(envelope.Data)
	if err != nil {
		return nil, err
	}

	c.log.Infof("解析成功: ContentID=%s, MediaType=%s, 下载链接数=%d",
		media.ContentID, media.MediaType, len(media.DownloadURLs))
	c.cache.SetDefault(shareURL, media)
	return media, nil
}

// extractMedia 从 data 字段中提取媒体信息并分类
func extractMedia(data *parseData) (*ParsedMedia, error) {
	if data.AwemeID == "" {
		return nil, &ParseError{Message: "响应缺少 aweme_id 字段"}
	}

	media := &ParsedMedia{
		ContentID:   data.AwemeID,
		Description: data.Desc,
		Author:      data.Author.Nickname,
	}

	// 带图集的是图片或实况照片，否则按视频处理
	if len(data.Images) > 0 {
		media.MediaType = model.MediaTypeImage
		for _, img := range data.Images {
			if img.Video != nil && len(img.Video.PlayAddr.URLList) > 0 {
				// 任意一张带视频轨即为实况照片
				media.MediaType = model.MediaTypeLivePhoto
			}
			if len(img.URLList) > 0 {
				media.DownloadURLs = append(media.DownloadURLs, img.URLList[0])
			}
		}
		if len(media.DownloadURLs) == 0 {
			return nil, &ParseError{Message: "图集中没有可用的下载链接"}
		}
		return media, nil
	}

	if data.Video == nil {
		return nil, &ParseError{Message: "响应既没有视频也没有图集"}
	}

	media.MediaType = model.MediaTypeVideo
	// bit_rate 列表按清晰度从高到低给出多个编码版本
	for _, br := range data.Video.BitRate {
		if len(br.PlayAddr.URLList) > 0 {
			media.DownloadURLs = append(media.DownloadURLs, br.PlayAddr.URLList[0])
		}
	}
	if len(media.DownloadURLs) == 0 && len(data.Video.PlayAddr.URLList) > 0 {
		media.DownloadURLs = data.Video.PlayAddr.URLList
	}
	if len(media.DownloadURLs) == 0 {
		return nil, &ParseError{Message: "响应中没有找到视频下载链接"}
	}
	return media, nil
}

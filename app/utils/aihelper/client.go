package aihelper

import (
	"context"
	"fmt"
	"strings"

	"lifetrace/app/config"

	"resty.dev/v3"
)

// EmptySummary 空字幕对应的模板化总结，不再请求上游
const EmptySummary = "（视频无可识别的语音内容）"

// summaryPrompt 文本总结提示词
const summaryPrompt = `请对以下视频字幕进行总结和精简：

%s

要求：
1. 提取关键信息、要点和核心内容
2. 保留重要的细节和数据
3. 保持逻辑清晰，结构化呈现
4. 如果可能，提取出可操作的建议或结论
5. 用简洁的中文表达

总结：`

// AIServiceError AI服务调用错误
type AIServiceError struct {
	Provider  string
	Message   string
	Cause     error
	Transient bool
}

func (e *AIServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s服务调用失败: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s服务调用失败: %s", e.Provider, e.Message)
}

func (e *AIServiceError) Unwrap() error {
	return e.Cause
}

// Retryable 实现重试判定接口
func (e *AIServiceError) Retryable() bool {
	return e.Transient
}

// Client AI客户端统一接口，语音识别与文本总结
type Client interface {
	// Transcribe 语音识别，将音频文件转换为文字
	Transcribe(ctx context.Context, audioPath string) (string, error)
	// Summarize 文本总结，对字幕进行总结和精简
	Summarize(ctx context.Context, text string) (string, error)
}

// NewFromConfig 根据配置选择AI提供商
func NewFromConfig(cfg *config.Config) (Client, error) {
	switch cfg.AI.Provider {
	case "siliconflow":
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("siliconflow api_key 未配置")
		}
		return newSiliconFlowClient(&cfg.AI), nil
	case "openai":
		if cfg.AI.APIKey == "" {
			return nil, fmt.Errorf("openai api_key 未配置")
		}
		return newOpenAIClient(&cfg.AI), nil
	default:
		return nil, fmt.Errorf("不支持的AI提供商: %s", cfg.AI.Provider)
	}
}

// chatResponse OpenAI兼容的对话补全响应
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// transcriptionResponse OpenAI兼容的语音识别响应
type transcriptionResponse struct {
	Text string `json:"text"`
}

// openAICompatClient OpenAI兼容协议客户端，硅基流动与OpenAI共用实现
type openAICompatClient struct {
	provider     string
	baseURL      string
	voiceModel   string
	summaryModel string
	client       *resty.Client
}

// newSiliconFlowClient 硅基流动客户端
func newSiliconFlowClient(cfg *config.AIConfig) *openAICompatClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.siliconflow.cn/v1"
	}
	return newCompatClient("硅基流动", baseURL, cfg)
}

// newOpenAIClient OpenAI客户端
func newOpenAIClient(cfg *config.AIConfig) *openAICompatClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	c := newCompatClient("OpenAI", baseURL, cfg)
	if cfg.VoiceModel == "" || cfg.VoiceModel == "FunAudioLLM/SenseVoiceSmall" {
		c.voiceModel = "whisper-1"
	}
	return c
}

func newCompatClient(provider, baseURL string, cfg *config.AIConfig) *openAICompatClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetAuthToken(cfg.APIKey)

	return &openAICompatClient{
		provider:     provider,
		baseURL:      baseURL,
		voiceModel:   cfg.VoiceModel,
		summaryModel: cfg.SummaryModel,
		client:       client,
	}
}

// Transcribe 语音识别，multipart/form-data 方式上传音频文件
func (c *openAICompatClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var result transcriptionResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(map[string]string{"model": c.voiceModel}).
		SetResult(&result).
		Post("/audio/transcriptions")

	if err != nil {
		return "", &AIServiceError{Provider: c.provider, Message: "语音识别请求失败", Cause: err, Transient: true}
	}
	if resp.StatusCode() != 200 {
		return "", &AIServiceError{
			Provider:  c.provider,
			Message:   fmt.Sprintf("语音识别响应状态码: %d - %s", resp.StatusCode(), resp.String()),
			Transient: resp.StatusCode() >= 500,
		}
	}

	return strings.TrimSpace(result.Text), nil
}

// Summarize 文本总结，空字幕直接返回模板化结果
func (c *openAICompatClient) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return EmptySummary, nil
	}

	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model": c.summaryModel,
			"messages": []map[string]string{
				{"role": "user", "content": fmt.Sprintf(summaryPrompt, text)},
			},
			"temperature": 0.3,
			"max_tokens":  2000,
		}).
		SetResult(&result).
		Post("/chat/completions")

	if err != nil {
		return "", &AIServiceError{Provider: c.provider, Message: "文本总结请求失败", Cause: err, Transient: true}
	}
	if resp.StatusCode() != 200 {
		return "", &AIServiceError{
			Provider:  c.provider,
			Message:   fmt.Sprintf("文本总结响应状态码: %d - %s", resp.StatusCode(), resp.String()),
			Transient: resp.StatusCode() >= 500,
		}
	}
	if len(result.Choices) == 0 {
		return "", &AIServiceError{Provider: c.provider, Message: "文本总结响应中没有结果"}
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Video  VideoConfig  `mapstructure:"video"`
	AI     AIConfig     `mapstructure:"ai"`
	Bark   BarkConfig   `mapstructure:"bark"`
	Notion NotionConfig `mapstructure:"notion"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// VideoConfig 视频处理管线配置
type VideoConfig struct {
	ParserAPIURL     string        `mapstructure:"parser_api_url"`     // 第三方解析API地址
	StorageDir       string        `mapstructure:"storage_dir"`        // 媒体文件存储根目录
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`        // ffmpeg 可执行文件路径
	ParserTimeout    time.Duration `mapstructure:"parser_timeout"`     // 解析API超时
	DownloadTimeout  time.Duration `mapstructure:"download_timeout"`   // 下载超时
	ExtractTimeout   time.Duration `mapstructure:"extract_timeout"`    // 音频提取超时
	RetentionDays    int           `mapstructure:"retention_days"`     // 已完成任务保留天数
	ParseCacheExpire time.Duration `mapstructure:"parse_cache_expire"` // 解析结果缓存时间
}

// AIConfig AI 服务配置
type AIConfig struct {
	Provider     string        `mapstructure:"provider"` // siliconflow 或 openai
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	VoiceModel   string        `mapstructure:"voice_model"`   // 语音识别模型
	SummaryModel string        `mapstructure:"summary_model"` // 文本总结模型
	Timeout      time.Duration `mapstructure:"timeout"`
}

// BarkConfig Bark 推送配置
type BarkConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	DeviceKey string `mapstructure:"device_key"`
}

// NotionConfig Notion 同步配置
type NotionConfig struct {
	Token           string `mapstructure:"token"`
	SleepDatabaseID string `mapstructure:"sleep_database_id"` // 睡眠记录数据库
	WakeDatabaseID  string `mapstructure:"wake_database_id"`  // 起床记录数据库
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "8000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "lifetrace")

	// 视频处理默认配置
	viper.SetDefault("video.parser_api_url", "http://localhost:8080/api/hybrid/video_data")
	viper.SetDefault("video.storage_dir", "data/media")
	viper.SetDefault("video.ffmpeg_path", "ffmpeg")
	viper.SetDefault("video.parser_timeout", 30*time.Second)
	viper.SetDefault("video.download_timeout", 10*time.Minute)
	viper.SetDefault("video.extract_timeout", 5*time.Minute)
	viper.SetDefault("video.retention_days", 7)
	viper.SetDefault("video.parse_cache_expire", 10*time.Minute)

	// AI服务默认配置
	viper.SetDefault("ai.provider", "siliconflow")
	viper.SetDefault("ai.voice_model", "FunAudioLLM/SenseVoiceSmall")
	viper.SetDefault("ai.summary_model", "Qwen/QwQ-32B")
	viper.SetDefault("ai.timeout", 5*time.Minute)

	// Bark默认配置
	viper.SetDefault("bark.base_url", "https://api.day.app")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Video.StorageDir == "" {
		return fmt.Errorf("媒体存储目录未设置")
	}
	if config.AI.Provider != "siliconflow" && config.AI.Provider != "openai" {
		return fmt.Errorf("不支持的AI提供商: %s", config.AI.Provider)
	}
	return nil
}

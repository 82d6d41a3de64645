package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OSS       OSSConfig       `mapstructure:"oss"`
	Email     EmailConfig     `mapstructure:"email"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Listing   ListingConfig   `mapstructure:"listing"`
	Loyalty   LoyaltyConfig   `mapstructure:"loyalty"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	Timezone string `mapstructure:"timezone"` // 月度配额按该时区的自然月计算
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type EmailConfig struct {
	Provider      string `mapstructure:"provider"` // resend, smtp
	ResendAPIKey  string `mapstructure:"resend_api_key"`
	ResendBaseURL string `mapstructure:"resend_base_url"`
	SMTPHost      string `mapstructure:"smtp_host"`
	SMTPPort      int    `mapstructure:"smtp_port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	From          string `mapstructure:"from"`
	AppURL        string `mapstructure:"app_url"` // 重置密码的默认跳转地址
	// 重置链接允许跳转的其他主机（host[:port]），AppURL 的主机总是允许
	AllowedRedirectHosts []string `mapstructure:"allowed_redirect_hosts"`
}

type PaymentConfig struct {
	RazorpayKeyID         string `mapstructure:"razorpay_key_id"`
	RazorpayKeySecret     string `mapstructure:"razorpay_key_secret"`
	RazorpayBaseURL       string `mapstructure:"razorpay_base_url"`
	RazorpayWebhookSecret string `mapstructure:"razorpay_webhook_secret"`
	TotalCount            int    `mapstructure:"total_count"`
}

type QueueConfig struct {
	EmailQueue string        `mapstructure:"email_queue"`
	MaxWorkers int           `mapstructure:"max_workers"`
	RetryDelay time.Duration `mapstructure:"retry_delay"` // 首次失败后的重试等待，之后翻倍
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type ListingConfig struct {
	MaxRows  int           `mapstructure:"max_rows"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LoyaltyConfig struct {
	PointsPerRedemption int `mapstructure:"points_per_redemption"`
}

type RateLimitConfig struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
	AuthBurst     int `mapstructure:"auth_burst"`
	// 核销通知邮件按用户限流
	EmailPerMinute int `mapstructure:"email_per_minute"`
	EmailBurst     int `mapstructure:"email_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// Location 返回配额计算使用的时区，解析失败时退回 UTC
func (c *Config) Location() *time.Location {
	if c == nil || c.Server.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load(configPath string) (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timezone", "Asia/Kolkata")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("email.provider", "resend")
	v.SetDefault("email.resend_base_url", "https://api.resend.com")
	v.SetDefault("email.allowed_redirect_hosts", []string{})
	v.SetDefault("payment.razorpay_base_url", "https://api.razorpay.com")
	v.SetDefault("payment.total_count", 12)
	v.SetDefault("queue.email_queue", "email_jobs")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("queue.retry_delay", "10s")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"authorization", "x-client-info", "apikey", "content-type"})
	v.SetDefault("listing.max_rows", 50)
	v.SetDefault("listing.cache_ttl", "30s")
	v.SetDefault("loyalty.points_per_redemption", 10)
	v.SetDefault("ratelimit.auth_per_minute", 10)
	v.SetDefault("ratelimit.auth_burst", 5)
	v.SetDefault("ratelimit.email_per_minute", 6)
	v.SetDefault("ratelimit.email_burst", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

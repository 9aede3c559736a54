package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 服务配置，全部来自 YATUBE_ 前缀的环境变量
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	GinMode  string `envconfig:"GIN_MODE" default:"release"`

	MySQLDSN    string `envconfig:"MYSQL_DSN" default:"user:password@tcp(127.0.0.1:3306)/yatube?charset=utf8mb4&parseTime=True&loc=Local"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"secret-key"`
	AccessTTL time.Duration `envconfig:"ACCESS_TTL" default:"30m"`
	// 只在 https 下发送登录 cookie
	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"false"`

	PostsPerPage  int           `envconfig:"POSTS_PER_PAGE" default:"10"`
	IndexCacheTTL time.Duration `envconfig:"INDEX_CACHE_TTL" default:"20s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:"http://localhost:9000"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:"minio"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:"minio123"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"yatube-media"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"yatube.events"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"Yatube <no-reply@yatube.local>"`

	OutboxInterval  time.Duration `envconfig:"OUTBOX_INTERVAL" default:"1s"`
	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"200"`
	OutboxMaxRetry  int           `envconfig:"OUTBOX_MAX_RETRY" default:"5"`

	ReconcileInterval  time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`
	ReconcileBatchSize int           `envconfig:"RECONCILE_BATCH_SIZE" default:"500"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

const envPrefix = "yatube"

// Load 先尝试读取 .env（不存在则忽略），再解析环境变量
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.PostsPerPage <= 0 {
		return nil, fmt.Errorf("load config: posts per page must be positive, got %d", cfg.PostsPerPage)
	}
	return &cfg, nil
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) String() string {
	return fmt.Sprintf("HTTPAddr=%s, RedisAddr=%s, S3Endpoint=%s, S3Bucket=%s, KafkaBrokers=%v, PostsPerPage=%d",
		c.HTTPAddr, c.RedisAddr, c.S3Endpoint, c.S3Bucket, c.KafkaBrokers, c.PostsPerPage)
}

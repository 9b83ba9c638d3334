package conf

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"time"
)

// 配置加载（API密钥、阶梯挂单参数等）

type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

type Okx struct {
	ApiKey    string `yaml:"apiKey"`
	SecretKey string `yaml:"secretKey"`
	Password  string `yaml:"password"`
	Simulated bool   `yaml:"simulated"` // okx 模拟盘
	Paper     bool   `yaml:"paper"`     // 本地纸面交易，不连接交易所
	RateLimit int    `yaml:"rate-limit"`

	PaperBalance float64 `yaml:"paper-balance"` // 纸面交易的初始结算币余额

}

type Db struct {
	Enable   bool   `yaml:"enable"`
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

type KafkaConfig struct {
	Broker  string `yaml:"broker"`
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"group-id"`
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	MaxPingCount int    `yaml:"max-ping-count"`
	JournalFile  string `yaml:"journal_file"`

	Webhook   WebhookConfig   `yaml:"webhook"`
	Okx       `yaml:"okx"`
	Db        `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Execution ExecutionConfig `yaml:"execution"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	cfg.applyEnv()
	cfg.Execution.ApplyDefaults()
	if err := cfg.Execution.Validate(); err != nil {
		return fmt.Errorf("invalid execution config: %w", err)
	}
	AppConfig = cfg
	return nil
}

// 环境变量优先于配置文件，密钥不落盘
func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Okx.ApiKey, "OKX_API_KEY")
	override(&c.Okx.SecretKey, "OKX_SECRET_KEY")
	override(&c.Okx.Password, "OKX_PASSPHRASE")
	override(&c.Db.Username, "DB_USER")
	override(&c.Db.Password, "DB_PASSWORD")
	override(&c.Db.Host, "DB_HOST")
	override(&c.Db.Port, "DB_PORT")
	override(&c.Db.DbName, "DB_NAME")
	override(&c.Kafka.Broker, "KAFKA_BROKER")
	override(&c.Webhook.Secret, "WEBHOOK_SECRET")
}

// 默认轮询参数
const (
	DefaultOrderExpiration  = 24 * time.Hour
	DefaultMonitorInterval  = 5 * time.Second
	DefaultPositionInterval = 10 * time.Second
	DefaultSweepInterval    = time.Minute
	DefaultMaxRetries       = 5
	DefaultSubmitRetries    = 2
)

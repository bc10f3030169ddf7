package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultSection  = "GLOBAL"
	DefaultFileName = ".utilrc"
)

type Config struct {
	Global        GlobalConfig   `mapstructure:"global"`
	CrawlSettings CrawlConfig    `mapstructure:"crawl"`
	S3Settings    S3Config       `mapstructure:"s3"`
	CacheSettings CacheConfig    `mapstructure:"cache"`
	DbSettings    DatabaseConfig `mapstructure:"database"`
	KafkaSettings KafkaConfig    `mapstructure:"kafka"`
}

type GlobalConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogType  string `mapstructure:"log_type"`
}

type CrawlConfig struct {
	Depth          int           `mapstructure:"depth"`
	StayInDomain   bool          `mapstructure:"stay_in_domain"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	Mechanism      string        `mapstructure:"mechanism"`
	Output         string        `mapstructure:"output"`
}

type S3Config struct {
	AwsAccessKey    string `mapstructure:"aws_access_key"`
	AwsSecretKey    string `mapstructure:"aws_secret_key"`
	AwsBaseEndpoint string `mapstructure:"aws_base_endpoint"`
	Region          string `mapstructure:"region"`
	BucketName      string `mapstructure:"bucket_name"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

func (c *S3Config) Enabled() bool {
	return c.BucketName != ""
}

type CacheConfig struct {
	Servers      string        `mapstructure:"servers"`
	TtlForReport time.Duration `mapstructure:"ttl_for_report"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
}

func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

type KafkaConfig struct {
	Addr         string        `mapstructure:"addr"`
	Topic        string        `mapstructure:"topic"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	Async        bool          `mapstructure:"async"`
}

func (c *KafkaConfig) Enabled() bool {
	return c.Addr != ""
}

// Default returns the configuration used for every key the file does not set.
func Default() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel: "error",
			LogType:  "text",
		},
		CrawlSettings: CrawlConfig{
			Depth:          1,
			StayInDomain:   true,
			MaxConcurrent:  5,
			Timeout:        30 * time.Second,
			ConnectTimeout: 10 * time.Second,
			UserAgent:      "util-cli/1.0",
			Mechanism:      "curl",
		},
		S3Settings: S3Config{
			KeyPrefix: "crawl-reports",
		},
		CacheSettings: CacheConfig{
			TtlForReport: 24 * time.Hour,
		},
		DbSettings: DatabaseConfig{
			Port:            "3306",
			ConnMaxLifetime: 3 * time.Minute,
			MaxOpenConns:    2,
			MaxIdleConns:    2,
		},
		KafkaSettings: KafkaConfig{
			Topic:        "crawl-pages",
			MaxAttempts:  3,
			BatchSize:    50,
			BatchTimeout: time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: 1,
		},
	}
}

// DefaultPath is ~/.utilrc, or .utilrc in the working directory when the home
// directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(home, DefaultFileName)
}

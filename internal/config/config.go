package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config is built once at startup and passed by reference into every
// component. Business logic never reads process-wide state directly.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	T24      T24Config      `mapstructure:"t24"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	AuditTrail string `mapstructure:"audit_trail"`
}

// T24Config carries the service-account credential triple plus the three
// TWS endpoint URLs. Company here is the service account's default branch;
// the unpay call overrides it with the cheque's owning branch.
type T24Config struct {
	Company        string `mapstructure:"company"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	QueryCCURL     string `mapstructure:"query_cc_url"`
	UnpayChequeURL string `mapstructure:"unpay_cheque_url"`
	ChargeURL      string `mapstructure:"charge_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (c *T24Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type BusinessConfig struct {
	MaxRetryCount     int `mapstructure:"max_retry_count"`
	ChargeLockSeconds int `mapstructure:"charge_lock_seconds"`
}

func (c *BusinessConfig) ChargeLockTTL() time.Duration {
	if c.ChargeLockSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ChargeLockSeconds) * time.Second
}

var GlobalConfig *Config

// LoadConfig reads the yaml config file.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	GlobalConfig = config
	return config
}

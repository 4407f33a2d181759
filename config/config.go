package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Movexa   MovexaConfig   `yaml:"movexa"`
}

type DatabaseConfig struct {
	// URL selects the Postgres engine when set; otherwise the embedded
	// SQLite engine is used with SQLitePath.
	URL        string `yaml:"url"`
	SQLitePath string `yaml:"sqlite_path"`

	OpTimeoutSeconds int `yaml:"op_timeout_seconds"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	ShipmentUpdatedTopicName string `yaml:"shipment_updated_topic_name"`
}

type MovexaConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`

	ViewTTLSeconds          int  `yaml:"view_ttl_seconds"`
	QuoteRateLimitPerMinute int  `yaml:"quote_rate_limit_per_minute"`
	SeedDemo                bool `yaml:"seed_demo"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}

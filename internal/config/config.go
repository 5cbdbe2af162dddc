package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host" env:"DB_HOST,required"`
		Port     int    `yaml:"port" env:"DB_PORT,required"`
		User     string `yaml:"user" env:"DB_USER,required"`
		Password string `yaml:"password" env:"DB_PASSWORD,required"`
		DBName   string `yaml:"dbname" env:"DB_NAME,required"`
		SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE,required"`
	} `yaml:"database"`

	Storage struct {
		Dir string `yaml:"dir" env:"STORAGE_DIR"`
	} `yaml:"storage"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Replace environment variables in the YAML content
	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		placeholder := "${" + pair[0] + "}"
		content = strings.ReplaceAll(content, placeholder, pair[1])
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Convert DB_PORT from string to int if it's an environment variable
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT value: %w", err)
		}
		cfg.Database.Port = port
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data/blobs"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return &cfg, nil
}

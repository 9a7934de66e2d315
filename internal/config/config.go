package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	LogLevel string `json:"log_level"` // debug, info, warn, error

	Store struct {
		CacheSize        int `json:"cache_size"`        // LRU entries for blob reads
		CompressionMin   int `json:"compression_min"`   // minimum bytes before compressing
		CompressionLevel int `json:"compression_level"` // zstd level (1=fastest, 3=best)
	} `json:"store"`

	Diff struct {
		ContextLines int `json:"context_lines"`
	} `json:"diff"`
}

func Default() *Config {
	cfg := &Config{LogLevel: "warn"}
	cfg.Store.CacheSize = 1000
	cfg.Store.CompressionMin = 1024
	cfg.Store.CompressionLevel = 2
	cfg.Diff.ContextLines = 3
	return cfg
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

package main

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL     string        `env:"UPLOADAI_API_URL" env-default:"http://localhost:3333"`
	RequestTimeout time.Duration `env:"UPLOADAI_REQUEST_TIMEOUT" env-default:"2m"`
	AudioBitrate   string        `env:"UPLOADAI_AUDIO_BITRATE" env-default:"20k"`
	LogDir         string        `env:"UPLOADAI_LOG_DIR" env-default:"logs"`
	Temperature    float64       `env:"UPLOADAI_TEMPERATURE" env-default:"0.5"`
}

func loadConfig() (*Config, error) {
	// A .env file is optional; variables already in the environment win.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	return &cfg, nil
}

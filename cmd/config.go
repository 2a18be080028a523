package main

import "time"

type Config struct {
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	HistoryLimit   int    `env:"HISTORY_LIMIT,default=50"`

	JWTSecret string        `env:"JWT_SECRET,required=true"`
	JWTTTL    time.Duration `env:"JWT_TTL,default=24h"`

	ModerationCharReplacement rune `env:"MODERATION_CHARACTER_REPLACEMENT,default=42"`

	AIQueueSize         int           `env:"AI_QUEUE_SIZE,default=32"`
	AIBusyBackoff       time.Duration `env:"AI_BUSY_BACKOFF,default=2s"`
	AIGenerationTimeout time.Duration `env:"AI_GENERATION_TIMEOUT,default=120s"`
	AIWorkers           int           `env:"AI_WORKERS,default=2"`

	DeepSeekAPIKey      string  `env:"DEEPSEEK_API_KEY,required=true"`
	DeepSeekBaseURL     string  `env:"DEEPSEEK_BASE_URL,default=https://api.deepseek.com"`
	DeepSeekModel       string  `env:"DEEPSEEK_MODEL,default=deepseek-chat"`
	DeepSeekTemperature float64 `env:"DEEPSEEK_TEMPERATURE,default=0.7"`

	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=5s"`
}

package config

import (
	"os"
	"strconv"

	"github.com/maaaruch/memory-tribunal/internal/storage"
)

type Config struct {
	HTTPAddr string
	DBPath   string
	SlotKey  string

	// RedisURL switches the durable slot from SQLite to Redis.
	RedisURL string

	// RabbitMQURL enables publishing accepted votes to RabbitMQQueue.
	RabbitMQURL   string
	RabbitMQQueue string

	TelegramToken string
	BotDebug      bool
}

func FromEnv() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		DBPath:        getenv("DB_PATH", "data/data.db"),
		SlotKey:       getenv("VOTE_SLOT_KEY", storage.DefaultKey),
		RedisURL:      os.Getenv("REDIS_URL"),
		RabbitMQURL:   os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue: getenv("RABBITMQ_QUEUE", "votes"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		BotDebug:      getbool("BOT_DEBUG", false),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

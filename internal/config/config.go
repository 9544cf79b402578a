// Package config assembles the runtime configuration from environment
// variables, with a .env file picked up when present.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	CatalogPath string

	Kafka    KafkaConfig
	Schedule ScheduleConfig
}

type KafkaConfig struct {
	Brokers []string // empty disables event publishing
	Topic   string
}

type ScheduleConfig struct {
	SlotCapacity int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	capacity, err := strconv.Atoi(getEnv("SLOT_CAPACITY", "5"))
	if err != nil || capacity <= 0 {
		capacity = 5
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		CatalogPath: getEnv("CATALOG_PATH", ""),
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   getEnv("KAFKA_TOPIC", "order.events"),
		},
		Schedule: ScheduleConfig{
			SlotCapacity: capacity,
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

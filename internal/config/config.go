// Package config reads service settings from the environment. A .env file in
// the working directory, when present, seeds variables that are not already
// set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Storefront struct {
	Port                   string
	BackendURL             string
	KafkaBrokers           []string
	OutcomeTopic           string
	WriteTimeout           time.Duration
	SessionTTL             time.Duration
	LinkTransactionToOrder bool
	ServiceVersion         string
}

type Journal struct {
	Port         string
	PostgresURL  string
	KafkaBrokers []string
	OutcomeTopic string
	GroupID      string
}

const DefaultOutcomeTopic = "checkout.outcome"

// LoadDotEnv loads the given files, or .env when none are given. A missing
// file is not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

func LoadStorefront() (Storefront, error) {
	cfg := Storefront{
		Port:                   getenv("PORT", "8080"),
		BackendURL:             strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		KafkaBrokers:           getenvList("KAFKA_BROKERS"),
		OutcomeTopic:           getenv("CHECKOUT_OUTCOME_TOPIC", DefaultOutcomeTopic),
		ServiceVersion:         getenv("SERVICE_VERSION", "0.1.0"),
		LinkTransactionToOrder: getenvBool("LINK_TRANSACTION_TO_ORDER", false),
	}

	var err error
	if cfg.WriteTimeout, err = getenvDuration("CHECKOUT_WRITE_TIMEOUT", 10*time.Second); err != nil {
		return Storefront{}, err
	}
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", 2*time.Hour); err != nil {
		return Storefront{}, err
	}

	if cfg.BackendURL == "" {
		return Storefront{}, errors.New("BACKEND_URL is required")
	}
	if cfg.WriteTimeout <= 0 {
		return Storefront{}, errors.New("CHECKOUT_WRITE_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func LoadJournal() (Journal, error) {
	cfg := Journal{
		Port:         getenv("PORT", "8085"),
		PostgresURL:  os.Getenv("POSTGRES_URL"),
		KafkaBrokers: getenvList("KAFKA_BROKERS"),
		OutcomeTopic: getenv("CHECKOUT_OUTCOME_TOPIC", DefaultOutcomeTopic),
		GroupID:      getenv("KAFKA_GROUP_ID", "checkout-journal"),
	}

	if cfg.PostgresURL == "" {
		return Journal{}, errors.New("POSTGRES_URL is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Journal{}, errors.New("KAFKA_BROKERS is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvBool(key string, def bool) bool {
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

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel slog.Level

	DatabaseURL  string
	QuestionsCSV string

	AMQPURL   string
	AMQPQueue string

	TokenSecret string

	MaxPlayersPerRoom int
	AllowLateJoin     bool
	HostGrace         time.Duration
	IdleTimeout       time.Duration
	EndedRetention    time.Duration
	JanitorInterval   time.Duration

	WSRateLimit float64
	WSRateBurst int
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, collecting every invalid
// value instead of stopping at the first.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Port:     p.intValue("PORT", 8080),
		LogLevel: p.levelValue("LOG_LEVEL", slog.LevelInfo),

		DatabaseURL:  getenv("DATABASE_URL"),
		QuestionsCSV: getenv("QUESTIONS_CSV"),

		AMQPURL:   getenv("AMQP_URL"),
		AMQPQueue: p.stringValue("AMQP_QUEUE", "game_results"),

		TokenSecret: getenv("TOKEN_SECRET"),

		MaxPlayersPerRoom: p.intValue("MAX_PLAYERS_PER_ROOM", 50),
		AllowLateJoin:     p.boolValue("ALLOW_LATE_JOIN", false),
		HostGrace:         p.durationValue("HOST_GRACE", 2*time.Minute),
		IdleTimeout:       p.durationValue("IDLE_TIMEOUT", 10*time.Minute),
		EndedRetention:    p.durationValue("ENDED_RETENTION", 5*time.Minute),
		JanitorInterval:   p.durationValue("JANITOR_INTERVAL", 15*time.Second),

		WSRateLimit: p.floatValue("WS_RATE_LIMIT", 20),
		WSRateBurst: p.intValue("WS_RATE_BURST", 40),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		p.fail("PORT", strconv.Itoa(cfg.Port))
	}
	if cfg.MaxPlayersPerRoom <= 0 {
		p.fail("MAX_PLAYERS_PER_ROOM", strconv.Itoa(cfg.MaxPlayersPerRoom))
	}

	return cfg, errors.Join(p.errs...)
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) fail(key, value string) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s: %q", key, value))
}

func (p *parser) stringValue(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) intValue(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return n
}

func (p *parser) floatValue(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		p.fail(key, v)
		return def
	}
	return f
}

func (p *parser) boolValue(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return b
}

func (p *parser) durationValue(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.fail(key, v)
		return def
	}
	return d
}

func (p *parser) levelValue(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v)
		return def
	}
	return lvl
}

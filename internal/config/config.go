package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTopicEndpoint    = "https://www.sefaria.org/api/texts/random-by-topic"
	defaultCalendarEndpoint = "https://www.sefaria.org/api/calendars"
	defaultSiteBaseURL      = "https://www.sefaria.org/"
	defaultDatabaseURL      = "hebrew_studies.db"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Sefaria API
	TopicEndpoint    string
	CalendarEndpoint string
	SiteBaseURL      string

	// Database
	DatabaseURL string

	// Fetch
	FetchTimeout time.Duration // 0はタイムアウトなし
	FetchMaxSize int64
	StrictEgress bool

	// Rate Limit
	RateLimitPerMinute int

	// Server
	ServerPort string
	Debug      bool

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// エンドポイントURLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{
		TopicEndpoint:      getEnvString("TOPIC_ENDPOINT", defaultTopicEndpoint),
		CalendarEndpoint:   getEnvString("CALENDAR_ENDPOINT", defaultCalendarEndpoint),
		SiteBaseURL:        getEnvString("SITE_BASE_URL", defaultSiteBaseURL),
		DatabaseURL:        getEnvString("DATABASE_URL", defaultDatabaseURL),
		FetchTimeout:       getEnvDuration("FETCH_TIMEOUT", 0),
		FetchMaxSize:       getEnvInt64("FETCH_MAX_SIZE", 5242880),
		StrictEgress:       getEnvBool("STRICT_EGRESS", false),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ServerPort:         getEnvString("SERVER_PORT", "80"),
		Debug:              getEnvBool("DEBUG", true),
		CORSAllowedOrigin:  getEnvString("CORS_ALLOWED_ORIGIN", "*"),
	}

	var invalid []string
	for key, raw := range map[string]string{
		"TOPIC_ENDPOINT":    cfg.TopicEndpoint,
		"CALENDAR_ENDPOINT": cfg.CalendarEndpoint,
		"SITE_BASE_URL":     cfg.SiteBaseURL,
	} {
		if !isHTTPURL(raw) {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, fmt.Errorf("invalid URL in environment variables: %v", invalid)
	}

	if !strings.HasSuffix(cfg.SiteBaseURL, "/") {
		cfg.SiteBaseURL += "/"
	}

	return cfg, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

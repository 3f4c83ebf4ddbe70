package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	APIBaseURL   string
	CategoryID   int
	CategorySlug string
	FilterJSON   string
	HTTPTimeout  int // seconds

	RawScrapeDir  string
	CleanedDir    string
	HistoryFile   string
	LocationsFile string

	SkipPhrases    []string
	FuzzyThreshold int

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	LogLevel string
}

// defaultFilterJSON reproduces the serp filter the scraper was built around:
// max price 25M, 3-5 bedrooms, 2 bathrooms.
const defaultFilterJSON = `[%7B%22type%22:%22money%22,%22key%22:%22price%22,%22maximum%22:25000000%7D,` +
	`%7B%22type%22:%22enum%22,%22key%22:%22bedrooms%22,%22values%22:[%223%22,%224%22,%225%22]%7D,` +
	`%7B%22type%22:%22enum%22,%22key%22:%22bathrooms%22,%22values%22:[%222%22]%7D]`

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		APIBaseURL:   getEnv("IKMAN_API_BASE_URL", "https://ikman.lk"),
		CategoryID:   getEnvInt("IKMAN_CATEGORY_ID", 415),
		CategorySlug: getEnv("IKMAN_CATEGORY_SLUG", "houses-for-sale"),
		FilterJSON:   getEnv("IKMAN_FILTER_JSON", defaultFilterJSON),
		HTTPTimeout:  getEnvInt("HTTP_TIMEOUT_SEC", 30),

		RawScrapeDir:  getEnv("RAW_SCRAPE_DIR", "./raw_scrape"),
		CleanedDir:    getEnv("CLEANED_DIR", "./cleaned_scrape"),
		HistoryFile:   getEnv("HISTORY_FILE", "./data/scrape_history.json"),
		LocationsFile: getEnv("LOCATIONS_FILE", "./assets/locations.json"),

		SkipPhrases:    getEnvList("SKIP_PHRASES", "Single,තනි තට්ටු,තනිමහල්,තනිමහළේ"),
		FuzzyThreshold: getEnvInt("FUZZY_THRESHOLD", 80),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "housing_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

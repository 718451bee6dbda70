package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

// DefaultEnvPath is where credentials live unless overridden with --env.
const DefaultEnvPath = "config/api_keys.env"

// Settings holds all credentials and connection parameters for one
// invocation. It is constructed once in main and passed down; nothing in
// the pipeline mutates process-wide configuration state.
type Settings struct {
	CoinAPIKey     string
	CryptoPanicKey string
	LunarCrushKey  string
	SantimentKey   string

	DBHost     string
	DBName     string
	DBUser     string
	DBPassword string
	DBPort     int

	// ClickhouseDSN enables the columnar analytical mirror when non-empty.
	ClickhouseDSN string

	ExportsDir string
}

// Load reads the env file (when present) and the process environment into
// a Settings value. A missing env file is not an error; missing required
// credentials are reported later, per provider, by RequireKey.
func Load(envPath string) (Settings, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return Settings{}, fmt.Errorf("load env file %s: %w", envPath, err)
			}
		}
	}

	port := 5432
	if v := os.Getenv("DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("parse DB_PORT %q: %w", v, err)
		}
		port = p
	}

	s := Settings{
		CoinAPIKey:     os.Getenv("COINAPI_KEY"),
		CryptoPanicKey: os.Getenv("CRYPTOPANIC_KEY"),
		LunarCrushKey:  os.Getenv("LUNARCRUSH_KEY"),
		SantimentKey:   os.Getenv("SANTIMENT_KEY"),
		DBHost:         envOr("DB_HOST", "127.0.0.1"),
		DBName:         envOr("DB_NAME", "portfolio"),
		DBUser:         envOr("DB_USER", "app"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBPort:         port,
		ClickhouseDSN:  os.Getenv("CLICKHOUSE_DSN"),
		ExportsDir:     envOr("EXPORTS_DIR", "exports"),
	}
	return s, nil
}

// PostgresDSN builds the pgx connection string. The password is embedded
// here and must never appear in logs.
func (s Settings) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		s.DBUser, s.DBPassword, s.DBHost, s.DBPort, s.DBName)
}

// RequireKey returns the API key for a provider, or an error when the
// provider needs a credential that is absent. This is the configuration
// assertion: it runs before any network or database activity.
func (s Settings) RequireKey(p domain.Provider) (string, error) {
	switch p {
	case domain.ProviderCoinAPI:
		return requireEnvKey(s.CoinAPIKey, "COINAPI_KEY")
	case domain.ProviderCryptoPanic:
		return requireEnvKey(s.CryptoPanicKey, "CRYPTOPANIC_KEY")
	case domain.ProviderLunarCrush:
		return requireEnvKey(s.LunarCrushKey, "LUNARCRUSH_KEY")
	case domain.ProviderSantiment:
		return requireEnvKey(s.SantimentKey, "SANTIMENT_KEY")
	case domain.ProviderYahoo:
		// Yahoo's chart endpoint is unauthenticated.
		return "", nil
	}
	return "", fmt.Errorf("unknown provider %q", p)
}

func requireEnvKey(value, name string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%s not set", name)
	}
	return value, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// LoadTokenUniverse reads a JSON array of token symbols and returns them
// uppercased with blanks dropped.
func LoadTokenUniverse(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token universe %s: %w", path, err)
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse token universe %s: %w", path, err)
	}

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens, nil
}

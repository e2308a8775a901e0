package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const ServiceName = "awf-group-api"

// keyspacePattern is the set of unquoted CQL identifiers Cassandra accepts as keyspace names.
var keyspacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,47}$`)

type Config struct {
	ServerPort string

	MongoURI    string
	MongoDBName string

	JWTSecret string
	// JWTTTL of zero issues tokens without an exp claim.
	JWTTTL time.Duration

	CassandraHosts    []string
	CassandraKeyspace string

	LogFile  string
	LogLevel string

	CORSOrigin     string
	AuthRatePerMin int
	// TrustProxy keys rate limiting on X-Forwarded-For instead of the peer address.
	TrustProxy bool
}

// Load reads envFile (if present) into the environment and builds a Config.
// A missing env file is not an error; the returned bool reports whether it was loaded.
func Load(envFile string) (*Config, bool, error) {
	loaded := true
	if err := godotenv.Load(envFile); err != nil {
		loaded = false
	}

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "5000"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "awf"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CassandraHosts:    splitHosts(os.Getenv("CASS_DB")),
		CassandraKeyspace: getEnv("CASS_KEYSPACE", "notifications"),
		LogFile:           os.Getenv("LOG_FILE"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigin:        getEnv("CORS_ORIGIN", "*"),
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, loaded, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	rate, err := strconv.Atoi(getEnv("AUTH_RATE_PER_MIN", "30"))
	if err != nil || rate <= 0 {
		return nil, loaded, fmt.Errorf("invalid AUTH_RATE_PER_MIN %q", os.Getenv("AUTH_RATE_PER_MIN"))
	}
	cfg.AuthRatePerMin = rate

	trust, err := strconv.ParseBool(getEnv("TRUST_PROXY", "false"))
	if err != nil {
		return nil, loaded, fmt.Errorf("invalid TRUST_PROXY: %w", err)
	}
	cfg.TrustProxy = trust

	if err := cfg.Validate(); err != nil {
		return nil, loaded, err
	}
	return cfg, loaded, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.MongoDBName == "" {
		return errors.New("MONGO_DB_NAME is empty")
	}
	if !keyspacePattern.MatchString(c.CassandraKeyspace) {
		return fmt.Errorf("invalid CASS_KEYSPACE %q", c.CassandraKeyspace)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.ServerPort, ":")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and amounts.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify JWTs issued by the identity service

	PayOSClientID    string // PayOS merchant client id
	PayOSAPIKey      string // PayOS API key
	PayOSChecksumKey string // PayOS HMAC checksum key for signing and webhook verification
	FrontendURL      string // base URL the gateway redirects back to after checkout

	HoldTTLSeconds    int // lifetime of a temporary booking hold in seconds
	PromoSweepMinutes int // interval between promotion expiry sweeps in minutes
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The PayOS
// credentials are deliberately optional: without them the server still
// serves read paths, and the gateway adapter fails fast on use.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),  // environment (dev/test/prod)
		Port:      must("APP_PORT"), // port to bind the HTTP server
		DBUser:    must("DB_USER"),  // database user
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		PayOSClientID:    os.Getenv("PAYOS_CLIENT_ID"),
		PayOSAPIKey:      os.Getenv("PAYOS_API_KEY"),
		PayOSChecksumKey: os.Getenv("PAYOS_CHECKSUM_KEY"),
		FrontendURL:      getenv("FRONTEND_URL", "http://localhost:3000"),

		HoldTTLSeconds:    intOr("HOLD_TTL_SECONDS", 1800),
		PromoSweepMinutes: intOr("PROMO_SWEEP_MINUTES", 10),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr reads an optional integer environment variable with a default.
// A present but malformed value is a configuration mistake and exits the
// program, matching the behaviour of required variables.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

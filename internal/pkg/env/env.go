// Package env loads the service configuration from a .env file with an OS
// environment fallback. Keys read by the service:
//
//	APP_HOST, APP_PORT, APP_BASE_URL
//	DB_USER, DB_PASSWORD, DB_HOST, DB_PORT, DB_NAME
//	CACHE_HOST, CACHE_PORT, CACHE_PASSWORD
//	PAYMENT_CURRENCY, PAYMENT_GATEWAY_ACCESS_TOKEN, PAYMENT_GATEWAY_API_BASE_URL
//	PUSH_PROVIDER_API_KEY, PUSH_PROVIDER_API_BASE_URL
//	SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_SENDER
//	METRICS_USER, METRICS_PASSWORD
package env

import (
	"os"

	"github.com/joho/godotenv"
)

var vars map[string]string

// GetEnv returns the value for key from the loaded .env file, falling back
// to the OS environment (Docker, CI) and then to def.
func GetEnv(key, def string) string {
	if val, ok := vars[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile reads the project .env. Both binaries (cmd/fixia and
// cmd/migrate) sit two levels below the project root, so only two lookup
// locations are needed.
func SetupEnvFile() {
	for _, envFile := range []string{".env", "../../.env"} {
		if loaded, err := godotenv.Read(envFile); err == nil {
			vars = loaded
			return
		}
	}
	panic("No .env file found in any of the expected locations")
}

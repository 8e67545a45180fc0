package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/unitloan/devicebooking/booking"
)

// Default catalog: the nine device types the service was originally
// provisioned with. Overridden with CATALOG_DEVICE_IDS.
var defaultCatalogDeviceIDs = []booking.DeviceID{1, 2, 3, 4, 5, 6, 7, 8, 9}

// Supported values for DB_ADAPTER.
const (
	AdapterTypePGX   = "pgx"
	AdapterTypeSQLDB = "sqldb"
	AdapterTypeSQLX  = "sqlx"
)

// Config holds the service configuration, loaded from environment variables.
type Config struct {
	ServiceName        string
	HTTPAddr           string
	DBAdapter          string // pgx (default), sqldb or sqlx
	PostgresDSN        string
	PostgresReplicaDSN string // empty means no replica, reads go to the primary
	CatalogDeviceIDs   []booking.DeviceID
	OTLPEndpoint    string // OTLP HTTP endpoint for traces and metrics, empty disables both
	ShutdownGrace      time.Duration
}

// Load reads the service configuration from the environment. A .env file in
// the working directory is loaded first if present; real environment
// variables take precedence over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName:        getenv("SERVICE_NAME", "bookingd"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		DBAdapter:          getenv("DB_ADAPTER", AdapterTypePGX),
		PostgresDSN:        getenv("POSTGRES_DSN", PostgresDevDSN()),
		PostgresReplicaDSN: getenv("POSTGRES_REPLICA_DSN", ""),
		CatalogDeviceIDs:   parseDeviceIDs(getenv("CATALOG_DEVICE_IDS", "")),
		OTLPEndpoint:    getenv("OTLP_ENDPOINT", ""),
		ShutdownGrace:      getenvDuration("SHUTDOWN_GRACE", 10*time.Second),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}

	return d
}

// parseDeviceIDs parses a comma-separated list of device identifiers.
// Malformed entries are skipped; an empty or fully malformed list falls back
// to the default catalog.
func parseDeviceIDs(raw string) []booking.DeviceID {
	if raw == "" {
		return defaultCatalogDeviceIDs
	}

	var ids []booking.DeviceID

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			continue
		}

		ids = append(ids, booking.DeviceID(id))
	}

	if len(ids) == 0 {
		return defaultCatalogDeviceIDs
	}

	return ids
}

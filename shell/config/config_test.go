package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/unitloan/devicebooking/booking"
)

func Test_ParseDeviceIDs(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want []booking.DeviceID
	}{
		{"simple list", "1,2,3", []booking.DeviceID{1, 2, 3}},
		{"whitespace and empty entries", " 4 , ,5 ", []booking.DeviceID{4, 5}},
		{"malformed entries are skipped", "1,abc,2", []booking.DeviceID{1, 2}},
		{"empty falls back to the default catalog", "", defaultCatalogDeviceIDs},
		{"fully malformed falls back to the default catalog", "a,b", defaultCatalogDeviceIDs},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseDeviceIDs(tc.raw))
		})
	}
}

func Test_Load_UsesDefaults(t *testing.T) {
	// setup: no relevant environment variables set
	for _, key := range []string{
		"SERVICE_NAME", "HTTP_ADDR", "DB_ADAPTER", "POSTGRES_DSN",
		"POSTGRES_REPLICA_DSN", "CATALOG_DEVICE_IDS", "OTLP_ENDPOINT",
		"SHUTDOWN_GRACE",
	} {
		t.Setenv(key, "")
	}

	// act
	cfg := Load()

	// assert
	assert.Equal(t, "bookingd", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, AdapterTypePGX, cfg.DBAdapter)
	assert.Equal(t, defaultCatalogDeviceIDs, cfg.CatalogDeviceIDs)
	assert.Empty(t, cfg.PostgresReplicaDSN)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
}

func Test_Load_ReadsEnvironment(t *testing.T) {
	// setup
	t.Setenv("SERVICE_NAME", "bookingd-test")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_ADAPTER", AdapterTypeSQLX)
	t.Setenv("CATALOG_DEVICE_IDS", "1,2")
	t.Setenv("SHUTDOWN_GRACE", "30s")

	// act
	cfg := Load()

	// assert
	assert.Equal(t, "bookingd-test", cfg.ServiceName)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, AdapterTypeSQLX, cfg.DBAdapter)
	assert.Equal(t, []booking.DeviceID{1, 2}, cfg.CatalogDeviceIDs)
	assert.Equal(t, 30*time.Second, cfg.ShutdownGrace)
}

func Test_GetenvDuration_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("SHUTDOWN_GRACE", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
}

package app

import (
	"os"

	"github.com/shandysiswandi/epimap/internal/pkg/pkgconfig"
)

// Defaults apply when a key is missing from both the file and the environment.
var Defaults = map[string]any{
	"tz":                                  "UTC",
	"log.level":                           "info",
	"server.address.http":                 ":8080",
	"server.max_upload_bytes":             256 << 20,
	"metrics.enabled":                     true,
	"modules.disease.enabled":             true,
	"storage.driver":                      "memory",
	"storage.postgres.dsn":                "",
	"storage.postgres.migrate":            true,
	"storage.sqlite.path":                 "data/epimap.db",
	"geometry.source":                     "none",
	"geometry.tolerance":                  0.01,
	"geometry.postgis.dsn":                "",
	"geometry.postgis.table":              "world_countries",
	"geometry.geojson.path":               "",
	"geometry.geojson.properties.admin":   "ADMIN",
	"geometry.geojson.properties.name_en": "NAME_EN",
	"geometry.geojson.properties.iso":     "ISO_A3",
	"ingest.batch_size":                   1000,
	"ingest.stream_buffer":                64,
	"ingest.default_date":                 "2020-01-01",
	"ingest.max_goroutines":               100,
}

// ConfigPath returns path when set, otherwise the container path or the
// local one when LOCAL=true.
func ConfigPath(path string) string {
	if path != "" {
		return path
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

// LoadConfig reads the config file at path merged with Defaults and the environment.
func LoadConfig(path string) (pkgconfig.Config, error) {
	return pkgconfig.NewViper(ConfigPath(path), Defaults)
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers .env, an optional YAML file and TOFO_* env vars over the defaults.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogJSON switches the log handler to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// WorkerCount sets the number of prediction workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// QueueSize bounds the in-memory target unit queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// RefreshInterval is the period of the background cache refresh; zero disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"min=0"`

	// PlanHours is the default planning window length when a request gives none.
	PlanHours float64 `koanf:"plan_hours" validate:"gt=0"`

	// MaxScoresLimit caps GET /scores?limit.
	MaxScoresLimit int `koanf:"max_scores_limit" validate:"min=1"`

	Observatory  ObservatoryConfig  `koanf:"observatory"`
	Telescope    TelescopeConfig    `koanf:"telescope"`
	Observations ObservationsConfig `koanf:"observations"`
	Cache        CacheConfig        `koanf:"cache"`
	Catalogs     CatalogsConfig     `koanf:"catalogs"`
	Sources      []SourceConfig     `koanf:"sources" validate:"dive"`
	Scoring      ScoringConfig      `koanf:"scoring"`
	Export       ExportConfig       `koanf:"export"`
}

// ObservatoryConfig describes the site.
type ObservatoryConfig struct {
	Name         string  `koanf:"name"`
	LatDeg       float64 `koanf:"lat_deg" validate:"min=-90,max=90"`
	LonDeg       float64 `koanf:"lon_deg" validate:"min=-180,max=180"`
	ElevationM   float64 `koanf:"elevation_m"`
	TimeZone     string  `koanf:"time_zone" validate:"required"`
	TemperatureC float64 `koanf:"temperature_c"`
	PressureHPa  float64 `koanf:"pressure_hpa" validate:"min=0"`
	HumidityPct  float64 `koanf:"rel_humidity_percentage" validate:"min=0,max=100"`
	HorizonFile  string  `koanf:"horizon_file"`
}

// TelescopeConfig describes the optical train.
type TelescopeConfig struct {
	ApertureMM    float64      `koanf:"aperture_mm" validate:"gt=0"`
	FocalLengthMM float64      `koanf:"focal_length_mm" validate:"gt=0"`
	Sensor        SensorConfig `koanf:"sensor"`
}

// SensorConfig is the physical sensor size.
type SensorConfig struct {
	SizeXMM float64 `koanf:"size_x_mm" validate:"gt=0"`
	SizeYMM float64 `koanf:"size_y_mm" validate:"gt=0"`
}

// ObservationsConfig holds observing constraints.
type ObservationsConfig struct {
	MinMag          float64 `koanf:"min_mag" validate:"gt=0"`
	ExoHoursBefore  float64 `koanf:"exo_hours_before" validate:"min=0"`
	ExoHoursAfter   float64 `koanf:"exo_hours_after" validate:"min=0"`
	Twilight        string  `koanf:"twilight" validate:"omitempty,oneof=civil nautical astronomical"`
	MinAltitudeDeg  float64 `koanf:"min_altitude_deg" validate:"min=-90,max=90"`
	SamplesPerEvent int     `koanf:"samples_per_event" validate:"min=2"`
	Refraction      bool    `koanf:"refraction"`
	// Secondaries adds secondary eclipses to the plan.
	Secondaries bool `koanf:"secondary_eclipses"`
}

// CacheConfig selects the persisted cache backend.
type CacheConfig struct {
	Backend     string `koanf:"backend" validate:"oneof=file postgres memory"`
	Path        string `koanf:"path" validate:"required_if=Backend file"`
	Compress    bool   `koanf:"compress"`
	DatabaseURL string `koanf:"database_url" validate:"required_if=Backend postgres"`
	Concurrency int    `koanf:"concurrency" validate:"min=1"`
}

// CatalogsConfig overrides catalog endpoints and HTTP behaviour.
type CatalogsConfig struct {
	ExoClockURL string        `koanf:"exoclock_url" validate:"omitempty,url"`
	NASAURL     string        `koanf:"nasa_url" validate:"omitempty,url"`
	VSXURL      string        `koanf:"vsx_url" validate:"omitempty,url"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	UserAgent   string        `koanf:"user_agent"`
}

// SourceConfig enables one catalog and sets its cache lifetime.
// A negative lifetime never expires.
type SourceConfig struct {
	Name          string  `koanf:"name" validate:"required,oneof=exoclock nasa_exo_archive aavso_vsx"`
	Use           bool    `koanf:"use"`
	CacheLifeDays float64 `koanf:"cache_life_days"`
}

// ScoringConfig weights the score metrics by name.
type ScoringConfig struct {
	Weights map[string]float64 `koanf:"weights" validate:"dive,min=0"`
}

// ExportConfig selects the default export format.
type ExportConfig struct {
	Format string `koanf:"format" validate:"oneof=csv json"`
}

// DefaultSources is used when the configuration lists none.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "exoclock", Use: true, CacheLifeDays: 7},
		{Name: "nasa_exo_archive", Use: false, CacheLifeDays: 30},
		{Name: "aavso_vsx", Use: true, CacheLifeDays: -1},
	}
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       10_000,
		RefreshInterval: 6 * time.Hour,
		PlanHours:       24,
		MaxScoresLimit:  500,
		Observatory: ObservatoryConfig{
			Name:         "observatory",
			TimeZone:     "UTC",
			TemperatureC: 10,
			PressureHPa:  1010,
			HumidityPct:  50,
		},
		Telescope: TelescopeConfig{
			ApertureMM:    200,
			FocalLengthMM: 1000,
			Sensor:        SensorConfig{SizeXMM: 17.6, SizeYMM: 13.3},
		},
		Observations: ObservationsConfig{
			MinMag:          15,
			ExoHoursBefore:  1,
			ExoHoursAfter:   1,
			Twilight:        "astronomical",
			MinAltitudeDeg:  0,
			SamplesPerEvent: 10,
			Refraction:      true,
		},
		Cache: CacheConfig{
			Backend:     "file",
			Path:        "cache",
			Compress:    false,
			Concurrency: 4,
		},
		Catalogs: CatalogsConfig{
			Timeout: 5 * time.Minute,
		},
		Sources: DefaultSources(),
		Scoring: ScoringConfig{
			Weights: map[string]float64{
				"total_observations":         1,
				"recent_observations":        3,
				"num_additional_fov_targets": 3,
				"min_additional_period":      2,
				"min_additional_duration":    1,
			},
		},
		Export: ExportConfig{Format: "csv"},
	}
}

// Package config loads the YAML configuration file into typed structs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML file at path and unmarshals it into a new T.
func Load[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Config is the top-level shape of the service's YAML file.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Fixed   FixedConfig   `yaml:"fixed"`
	Cache   CacheConfig   `yaml:"cache"`
	Track   TrackConfig   `yaml:"track"`
	Log     LogConfig     `yaml:"log"`
	Web     WebConfig     `yaml:"web"`
	Session SessionConfig `yaml:"session"`
	Weather WeatherConfig `yaml:"weather"`
	NATS    NATSConfig    `yaml:"nats"`
}

type APIConfig struct {
	URL        string        `yaml:"url"`
	PollPeriod time.Duration `yaml:"poll_period"`
	Timeout    time.Duration `yaml:"timeout"`
}

type FixedConfig struct {
	DataURL             string `yaml:"data_url"`
	BoundariesURL       string `yaml:"boundaries_url"`
	RunwaysURL          string `yaml:"runways_url"`
	GeonamesCountryURL  string `yaml:"geonames_countries_url"`
	GeonamesShapesURL   string `yaml:"geonames_shapes_url"`
}

type CacheConfig struct {
	Runways            string        `yaml:"runways"`
	GeonamesCountries  string        `yaml:"geonames_countries"`
	GeonamesShapes     string        `yaml:"geonames_shapes"`
	WeatherTTL         time.Duration `yaml:"weather_ttl"`
	BlacklistInitial   time.Duration `yaml:"blacklist_initial"`
	SweepPeriod        time.Duration `yaml:"sweep_period"`
}

type TrackConfig struct {
	Folder        string `yaml:"folder"`
	CatalogDSN    string `yaml:"catalog_dsn"`
	URI           string `yaml:"uri"`    // reserved, unused
	DBName        string `yaml:"dbname"` // reserved, unused
	CleanupEveryN int    `yaml:"cleanup_every_n"`
	MaxAge        time.Duration `yaml:"max_age"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WebConfig struct {
	Port string `yaml:"port"`
}

type SessionConfig struct {
	MapWinMultiplier float64       `yaml:"map_win_multiplier"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	SettleInterval   time.Duration `yaml:"settle_interval"`
}

type WeatherConfig struct {
	BaseURL string `yaml:"base_url"`
}

type NATSConfig struct {
	// URL of an optional NATS server to publish ingest events to.
	// Empty disables publishing.
	URL string `yaml:"url"`
}

// WithDefaults fills zero-valued fields with the service defaults
// after unmarshal; struct-tag defaults are not used.
func (c *Config) WithDefaults() *Config {
	if c.API.PollPeriod == 0 {
		c.API.PollPeriod = 15 * time.Second
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Cache.WeatherTTL == 0 {
		c.Cache.WeatherTTL = 1800 * time.Second
	}
	if c.Cache.BlacklistInitial == 0 {
		c.Cache.BlacklistInitial = 3600 * time.Second
	}
	if c.Cache.SweepPeriod == 0 {
		c.Cache.SweepPeriod = 300 * time.Second
	}
	if c.Track.CleanupEveryN == 0 {
		c.Track.CleanupEveryN = 5
	}
	if c.Track.MaxAge == 0 {
		c.Track.MaxAge = 48 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Session.MapWinMultiplier == 0 {
		c.Session.MapWinMultiplier = 1.0
	}
	if c.Session.TickInterval == 0 {
		c.Session.TickInterval = 5 * time.Second
	}
	if c.Session.SettleInterval == 0 {
		c.Session.SettleInterval = 50 * time.Millisecond
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://aviationweather.gov/cgi-bin/data"
	}
	if c.Web.Port == "" {
		c.Web.Port = "8073"
	}
	return c
}

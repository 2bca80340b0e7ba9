package analytics

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid analytics config")

// OtherDepartment receives categories with no mapping entry.
const OtherDepartment = "Other"

// Coordinate is a WGS84 point used to place an area on a map.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

// Config is the engine configuration. Treat a Config value as immutable once
// handed to an analysis; use Store to replace it at runtime.
type Config struct {
	// SLATargets maps each urgency level to its allowed open duration in hours.
	SLATargets map[Urgency]float64 `json:"sla_targets" yaml:"sla_targets" validate:"required,dive,keys,oneof=Critical High Medium Low,endkeys,gt=0"`

	// DepartmentMapping maps a category to the department that owns it.
	DepartmentMapping map[string]string `json:"department_mapping" yaml:"department_mapping" validate:"dive,keys,required,endkeys,required"`

	// AreaCoordinates places known areas; only carried into geo results.
	AreaCoordinates map[string]Coordinate `json:"area_coordinates" yaml:"area_coordinates" validate:"dive"`

	// ResponseReferenceHours is the response time at which the response
	// factor reaches zero.
	ResponseReferenceHours float64 `json:"response_reference_hours" yaml:"response_reference_hours" validate:"gt=0"`

	// HotspotTopN is the default length of the ranked hotspot list.
	HotspotTopN int `json:"hotspot_top_n" yaml:"hotspot_top_n" validate:"gte=1,lte=1000"`

	// Timezone names the IANA zone used for period and heatmap bucketing.
	Timezone string `json:"timezone" yaml:"timezone"`

	loc *time.Location
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		SLATargets: map[Urgency]float64{
			UrgencyCritical: 4,
			UrgencyHigh:     24,
			UrgencyMedium:   72,
			UrgencyLow:      168,
		},
		DepartmentMapping: map[string]string{
			"Roads & Transportation": "Infrastructure",
			"Water & Sanitation":     "Utilities",
			"Public Safety":          "Safety",
			"Healthcare":             "Health",
			"Education":              "Education",
			"Environment":            "Environment",
			"Street Lighting":        "Infrastructure",
			"Waste Management":       "Environment",
			"Parks & Recreation":     "Environment",
			"Building Permits":       "Administration",
			"Tax & Revenue":          "Administration",
			"Other":                  "General",
		},
		AreaCoordinates: map[string]Coordinate{
			"Downtown":           {Lat: 40.7589, Lon: -73.9851},
			"Midtown":            {Lat: 40.7549, Lon: -73.9840},
			"Upper East Side":    {Lat: 40.7736, Lon: -73.9566},
			"Upper West Side":    {Lat: 40.7870, Lon: -73.9754},
			"Lower Manhattan":    {Lat: 40.7080, Lon: -74.0113},
			"Brooklyn":           {Lat: 40.6782, Lon: -73.9442},
			"Queens":             {Lat: 40.7282, Lon: -73.7949},
			"Bronx":              {Lat: 40.8448, Lon: -73.8648},
			"Staten Island":      {Lat: 40.5795, Lon: -74.1502},
			"Harlem":             {Lat: 40.8116, Lon: -73.9465},
			"Financial District": {Lat: 40.7074, Lon: -74.0113},
		},
		ResponseReferenceHours: 240,
		HotspotTopN:            10,
		Timezone:               "UTC",
		loc:                    time.UTC,
	}
}

var validate = validator.New()

// Validate checks field constraints, requires a target for every urgency
// level, and resolves the timezone.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, u := range Urgencies {
		if _, ok := c.SLATargets[u]; !ok {
			return fmt.Errorf("%w: missing sla target for %s", ErrInvalidConfig, u)
		}
	}
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, tz, err)
	}
	c.Timezone = tz
	c.loc = loc
	return nil
}

// Location returns the bucketing zone, UTC when unset.
func (c Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Clone returns a deep copy so the caller can mutate maps freely.
func (c Config) Clone() Config {
	out := c
	out.SLATargets = make(map[Urgency]float64, len(c.SLATargets))
	for k, v := range c.SLATargets {
		out.SLATargets[k] = v
	}
	out.DepartmentMapping = make(map[string]string, len(c.DepartmentMapping))
	for k, v := range c.DepartmentMapping {
		out.DepartmentMapping[k] = v
	}
	out.AreaCoordinates = make(map[string]Coordinate, len(c.AreaCoordinates))
	for k, v := range c.AreaCoordinates {
		out.AreaCoordinates[k] = v
	}
	return out
}

// TargetFor returns the SLA target for u. Missing or unrecognized urgency
// falls back to the Low target, reported through the second return value.
func (c Config) TargetFor(u Urgency) (hours float64, effective Urgency) {
	if u.Known() {
		if h, ok := c.SLATargets[u]; ok {
			return h, u
		}
	}
	return c.SLATargets[UrgencyLow], UrgencyLow
}

// DepartmentFor maps a category to its department; unmapped and empty
// categories go to OtherDepartment.
func (c Config) DepartmentFor(category string) string {
	if d, ok := c.DepartmentMapping[strings.TrimSpace(category)]; ok && d != "" {
		return d
	}
	return OtherDepartment
}

// Departments returns the sorted, de-duplicated list of mapped departments.
func (c Config) Departments() []string {
	seen := map[string]struct{}{}
	for _, d := range c.DepartmentMapping {
		seen[d] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// DecodeYAML overlays YAML from r onto the defaults and validates the
// result. Scalars absent from the document keep their defaults and map
// entries are merged into the default maps.
func DecodeYAML(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a YAML config from path. An empty path yields the defaults.
func LoadFile(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return DecodeYAML(f)
}

// Store holds the current Config and guards runtime replacement so that no
// analysis observes a half-updated configuration.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore validates cfg and wraps it.
func NewStore(cfg Config) (*Store, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{cfg: cfg}, nil
}

// Snapshot returns an independent copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Replace validates cfg and swaps it in. On error the current config is kept.
func (s *Store) Replace(cfg Config) error {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

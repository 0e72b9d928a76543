// Package catalog loads the repair locations and their weekly opening hours.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"repairshop/internal/schedule"
)

// Loader defines the interface for loading a location catalog.
type Loader interface {
	// Load reads a YAML catalog document from path.
	Load(ctx context.Context, path string) (*Catalog, error)
}

// Location is a physical repair workshop.
type Location struct {
	Slug  string
	Name  string
	Hours schedule.WeeklyHours
}

// Catalog is an immutable set of locations keyed by slug.
type Catalog struct {
	tz        *time.Location
	locations map[string]Location
	slugs     []string
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

type document struct {
	Timezone  string        `yaml:"timezone"`
	Locations []locationDoc `yaml:"locations"`
}

type locationDoc struct {
	Slug         string                 `yaml:"slug"`
	Name         string                 `yaml:"name"`
	OpeningHours map[string][]periodDoc `yaml:"openingHours"`
}

type periodDoc struct {
	Open  string `yaml:"open"`
	Close string `yaml:"close"`
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	tzName := doc.Timezone
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog timezone %q: %w", tzName, err)
	}

	locations := make([]Location, 0, len(doc.Locations))
	for _, ld := range doc.Locations {
		loc, err := ld.toLocation()
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}

	return New(tz, locations...)
}

// New builds a catalog from already-constructed locations. Slugs must be
// unique and every location's hours must validate.
func New(tz *time.Location, locations ...Location) (*Catalog, error) {
	if tz == nil {
		tz = time.UTC
	}
	c := &Catalog{
		tz:        tz,
		locations: make(map[string]Location, len(locations)),
	}
	for _, loc := range locations {
		if loc.Slug == "" {
			return nil, fmt.Errorf("location %q has no slug", loc.Name)
		}
		if _, dup := c.locations[loc.Slug]; dup {
			return nil, fmt.Errorf("duplicate location slug %q", loc.Slug)
		}
		if err := loc.Hours.Validate(); err != nil {
			return nil, fmt.Errorf("location %s: %w", loc.Slug, err)
		}
		c.locations[loc.Slug] = loc
		c.slugs = append(c.slugs, loc.Slug)
	}
	sort.Strings(c.slugs)
	return c, nil
}

func (ld locationDoc) toLocation() (Location, error) {
	slug := strings.TrimSpace(ld.Slug)
	name := strings.TrimSpace(ld.Name)
	if name == "" {
		name = slug
	}

	hours := make(schedule.WeeklyHours, len(ld.OpeningHours))
	for key, periods := range ld.OpeningHours {
		day, ok := weekdays[strings.ToLower(key)]
		if !ok {
			return Location{}, fmt.Errorf("location %s: unknown weekday %q", slug, key)
		}
		for _, p := range periods {
			open, err := schedule.ParseTimeOfDay(p.Open)
			if err != nil {
				return Location{}, fmt.Errorf("location %s %s: %w", slug, key, err)
			}
			closeAt, err := schedule.ParseTimeOfDay(p.Close)
			if err != nil {
				return Location{}, fmt.Errorf("location %s %s: %w", slug, key, err)
			}
			hours[day] = append(hours[day], schedule.Period{Open: open, Close: closeAt})
		}
	}

	return Location{Slug: slug, Name: name, Hours: hours}, nil
}

// Lookup returns the location with the given slug.
func (c *Catalog) Lookup(slug string) (Location, bool) {
	loc, ok := c.locations[slug]
	return loc, ok
}

// Locations returns all locations ordered by slug.
func (c *Catalog) Locations() []Location {
	out := make([]Location, 0, len(c.slugs))
	for _, s := range c.slugs {
		out = append(out, c.locations[s])
	}
	return out
}

// Timezone is the business timezone used to decide the current calendar day.
func (c *Catalog) Timezone() *time.Location {
	return c.tz
}

// Today returns the calendar day of now in the catalog timezone, as UTC midnight.
func (c *Catalog) Today(now time.Time) time.Time {
	y, m, d := now.In(c.tz).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

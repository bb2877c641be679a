package models

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

// Catalog is the fixed list of badge definitions, in declaration order.
type Catalog struct {
	Version string `yaml:"version"`
	// DefaultUnlockedAt stamps badges unlocked by the default pattern, so that a
	// reset always derives the same collection.
	DefaultUnlockedAt time.Time         `yaml:"default_unlocked_at"`
	Badges            []BadgeDefinition `yaml:"badges"`

	index map[string]int
}

// NewCatalog builds and validates a catalog in code.
func NewCatalog(version string, defaultUnlockedAt time.Time, badges ...BadgeDefinition) (*Catalog, error) {
	c := &Catalog{
		Version:           version,
		DefaultUnlockedAt: defaultUnlockedAt,
		Badges:            append([]BadgeDefinition(nil), badges...),
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog. Unknown fields are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog resolves an embedded catalog name ("campus", "mirai") or reads a YAML file.
func LoadCatalog(nameOrPath string) (*Catalog, error) {
	data, err := embeddedCatalogs.ReadFile("catalogs/" + nameOrPath + ".yaml")
	if err != nil {
		data, err = os.ReadFile(nameOrPath)
		if err != nil {
			return nil, fmt.Errorf("catalog %q is neither embedded (%s) nor a readable file: %w",
				nameOrPath, strings.Join(EmbeddedCatalogNames(), ", "), err)
		}
	}
	return ParseCatalog(data)
}

// EmbeddedCatalogNames lists the catalogs compiled into the binary.
func EmbeddedCatalogNames() []string {
	entries, _ := fs.ReadDir(embeddedCatalogs, "catalogs")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) init() error {
	if c.Version == "" {
		c.Version = "v1"
	}
	c.DefaultUnlockedAt = c.DefaultUnlockedAt.UTC()
	if err := c.Validate(); err != nil {
		return err
	}
	c.index = make(map[string]int, len(c.Badges))
	for i, b := range c.Badges {
		c.index[b.ID] = i
	}
	return nil
}

// Validate checks ids, enums and points.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Badges))
	needsDefaultTime := false
	for i, b := range c.Badges {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("badge #%d has an empty id", i)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true

		if !b.Category.Valid() {
			return fmt.Errorf("badge %q has unknown category %q", b.ID, b.Category)
		}
		if !b.Rarity.Valid() {
			return fmt.Errorf("badge %q has unknown rarity %q", b.ID, b.Rarity)
		}
		if b.Points < 0 {
			return fmt.Errorf("badge %q has negative points", b.ID)
		}
		if b.DefaultUnlocked {
			needsDefaultTime = true
		}
	}
	if needsDefaultTime && c.DefaultUnlockedAt.IsZero() {
		return fmt.Errorf("default_unlocked_at is required when a badge is unlocked by default")
	}
	return nil
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.Badges)
}

// Lookup finds a definition by id.
func (c *Catalog) Lookup(id string) (BadgeDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.Badges[i], true
}

// IndexOf returns the declaration position of id, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// DefaultStates derives the initial state of every badge.
func (c *Catalog) DefaultStates() []BadgeState {
	states := make([]BadgeState, len(c.Badges))
	for i, b := range c.Badges {
		states[i] = BadgeState{BadgeID: b.ID}
		if b.DefaultUnlocked {
			at := c.DefaultUnlockedAt
			states[i].Unlocked = true
			states[i].UnlockedAt = &at
		}
	}
	return states
}

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bgtwallet/bgtwallet/internal/domain"
	"go.uber.org/zap"
)

// Country is one sellable-asset catalog entry.
type Country struct {
	Name            string        `json:"name"`
	SellPriceMicros domain.Micros `json:"sell_price_micros"`
	BuyPriceMicros  domain.Micros `json:"buy_price_micros"`
}

// Catalog is the country -> price table, file backed with the same
// rewrite-on-change discipline as the withdrawal settings.
type Catalog struct {
	mu        sync.Mutex
	path      string
	countries map[string]Country
}

func New(path string) *Catalog {
	return &Catalog{
		path:      path,
		countries: make(map[string]Country),
	}
}

// Load reads the catalog file if present.
func (c *Catalog) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read catalog: %w", err)
	}
	countries := make(map[string]Country)
	if err := json.Unmarshal(data, &countries); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	c.mu.Lock()
	c.countries = countries
	c.mu.Unlock()
	return nil
}

// Get looks a country up by name, case-insensitively.
func (c *Catalog) Get(name string) (Country, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	country, ok := c.countries[strings.ToLower(strings.TrimSpace(name))]
	return country, ok
}

// List returns all entries sorted by name.
func (c *Catalog) List() []Country {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Country, 0, len(c.countries))
	for _, country := range c.countries {
		out = append(out, country)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Upsert adds or replaces a country and persists.
func (c *Catalog) Upsert(country Country) {
	key := strings.ToLower(strings.TrimSpace(country.Name))
	c.mu.Lock()
	c.countries[key] = country
	c.mu.Unlock()
	c.save()
}

// Delete removes a country and persists. It reports whether the entry
// existed.
func (c *Catalog) Delete(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.Lock()
	_, ok := c.countries[key]
	delete(c.countries, key)
	c.mu.Unlock()
	if ok {
		c.save()
	}
	return ok
}

func (c *Catalog) save() {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.countries, "", "  ")
	c.mu.Unlock()
	if err != nil {
		zap.L().Error("encode catalog failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		zap.L().Error("create catalog dir failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		zap.L().Error("write catalog failed", zap.Error(err))
	}
}

package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"resume_rewards/internal/domain"

	"github.com/BurntSushi/toml"
	"github.com/gosimple/slug"
)

//go:embed catalog.toml
var defaultCatalog string

// Tier - уровень шаблона
type Tier string

const (
	TierFree    Tier = "FREE"
	TierPremium Tier = "PREMIUM"
	TierElite   Tier = "ELITE"
)

func (t Tier) valid() bool {
	return t == TierFree || t == TierPremium || t == TierElite
}

// Entry is one template's tier and pricing.
type Entry struct {
	ID           string `toml:"id" json:"id"`
	Name         string `toml:"name" json:"name"`
	Tier         Tier   `toml:"tier" json:"tier"`
	UnlockCost   int64  `toml:"unlock_cost" json:"unlock_cost"`
	DownloadCost int64  `toml:"download_cost" json:"download_cost"`
}

func (e Entry) NeedsUnlock() bool {
	return e.Tier != TierFree
}

type file struct {
	DefaultDownloadCost int64   `toml:"default_download_cost"`
	Templates           []Entry `toml:"templates"`
}

// Catalog is a read-only template lookup. Safe for concurrent use.
type Catalog struct {
	entries      map[string]Entry
	order        []string
	fallbackCost int64
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a TOML catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(string(raw))
}

func Parse(data string) (*Catalog, error) {
	var f file
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if f.DefaultDownloadCost <= 0 {
		f.DefaultDownloadCost = 50
	}

	c := &Catalog{entries: make(map[string]Entry, len(f.Templates)), fallbackCost: f.DefaultDownloadCost}
	for _, e := range f.Templates {
		id := normalize(e.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog entry %q: empty id", e.Name)
		}
		if !e.Tier.valid() {
			return nil, fmt.Errorf("catalog entry %q: unknown tier %q", id, e.Tier)
		}
		if e.UnlockCost < 0 || e.DownloadCost < 0 {
			return nil, fmt.Errorf("catalog entry %q: negative cost", id)
		}
		if e.NeedsUnlock() && e.UnlockCost == 0 {
			return nil, fmt.Errorf("catalog entry %q: %s tier needs an unlock cost", id, e.Tier)
		}
		if _, dup := c.entries[id]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate id", id)
		}
		if !e.NeedsUnlock() {
			e.UnlockCost = 0
		}
		if e.Name == "" {
			e.Name = id
		}
		e.ID = id
		c.entries[id] = e
		c.order = append(c.order, id)
	}
	return c, nil
}

// normalize maps "Modern", " modern " and "MODERN" to the same id.
func normalize(id string) string {
	return slug.Make(strings.TrimSpace(id))
}

// Lookup returns the entry for a known template.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	e, ok := c.entries[normalize(id)]
	return e, ok
}

// Resolve never fails: unknown ids become a FREE entry at the fallback cost.
func (c *Catalog) Resolve(id string) Entry {
	if e, ok := c.Lookup(id); ok {
		return e
	}
	return Entry{ID: normalize(id), Name: id, Tier: TierFree, DownloadCost: c.fallbackCost}
}

// Require is Lookup for operations where an unknown id is a client error.
func (c *Catalog) Require(id string) (Entry, error) {
	e, ok := c.Lookup(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", domain.ErrTemplateNotFound, id)
	}
	return e, nil
}

func (c *Catalog) NeedsUnlock(id string) bool {
	return c.Resolve(id).NeedsUnlock()
}

func (c *Catalog) DownloadCost(id string) int64 {
	return c.Resolve(id).DownloadCost
}

func (c *Catalog) UnlockCost(id string) int64 {
	return c.Resolve(id).UnlockCost
}

func (c *Catalog) FallbackDownloadCost() int64 {
	return c.fallbackCost
}

// Entries lists templates by tier, then in file order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	rank := map[Tier]int{TierFree: 0, TierPremium: 1, TierElite: 2}
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i].Tier] < rank[out[j].Tier] })
	return out
}

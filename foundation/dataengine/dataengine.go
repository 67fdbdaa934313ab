// Package dataengine manages the registry of external data sources and
// turns collected data quantities into currency amounts.
package dataengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrSourceNotFound is returned when a source id is not registered.
var ErrSourceNotFound = errors.New("data source not found")

// Set of supported source types. An unknown type values like a plain web
// page.
const (
	SourceTypeAPI    = "api"
	SourceTypeWeb    = "web"
	SourceTypeRSS    = "rss"
	SourceTypeSocial = "social"
)

// DataSource represents a registered external source of data. The weight is
// a basis point multiplier applied during valuation.
type DataSource struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	URL           string `json:"url"`
	WeightBP      uint64 `json:"weight_bp"`
	LastCollected uint64 `json:"last_collected"` // Unix seconds, zero when never collected.
	ConvertedMMB  uint64 `json:"converted_mmb"`  // Running total of converted data from this source.
}

// Engine maintains the set of registered data sources with JSON persistence.
type Engine struct {
	mu        sync.RWMutex
	dbPath    string
	sources   map[string]DataSource
	evHandler func(v string, args ...any)
}

// New constructs a data engine, loading any previously registered sources
// from disk.
func New(dbPath string, evHandler func(v string, args ...any)) (*Engine, error) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	eng := Engine{
		dbPath:    dbPath,
		sources:   make(map[string]DataSource),
		evHandler: evHandler,
	}

	if err := eng.load(); err != nil {
		return nil, err
	}

	return &eng, nil
}

// AddSource registers or replaces a data source and persists the registry.
func (eng *Engine) AddSource(ds DataSource) error {
	if ds.ID == "" {
		return errors.New("data source requires an id")
	}
	if ds.WeightBP == 0 {
		ds.WeightBP = OneWeight
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()

	eng.sources[ds.ID] = ds
	eng.evHandler("dataengine: source registered: id[%s] type[%s]", ds.ID, ds.Type)

	return eng.save()
}

// RemoveSource drops a data source from the registry.
func (eng *Engine) RemoveSource(id string) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	if _, exists := eng.sources[id]; !exists {
		return ErrSourceNotFound
	}

	delete(eng.sources, id)
	return eng.save()
}

// Source returns the registered data source with the specified id.
func (eng *Engine) Source(id string) (DataSource, error) {
	eng.mu.RLock()
	defer eng.mu.RUnlock()

	ds, exists := eng.sources[id]
	if !exists {
		return DataSource{}, ErrSourceNotFound
	}

	return ds, nil
}

// Sources returns all registered data sources ordered by id.
func (eng *Engine) Sources() []DataSource {
	eng.mu.RLock()
	defer eng.mu.RUnlock()

	all := make([]DataSource, 0, len(eng.sources))
	for _, ds := range eng.sources {
		all = append(all, ds)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return all
}

// MarkCollected records the time data was last pulled from the source and
// adds the collected quantity to its running total. The valuation freshness
// bonus keys off this timestamp.
func (eng *Engine) MarkCollected(id string, sizeMMB uint64, t time.Time) error {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	ds, exists := eng.sources[id]
	if !exists {
		return ErrSourceNotFound
	}

	ds.LastCollected = uint64(t.UTC().Unix())
	ds.ConvertedMMB += sizeMMB
	eng.sources[id] = ds

	return eng.save()
}

// load reads the registry file if one exists. A missing file means an empty
// registry, not an error.
func (eng *Engine) load() error {
	data, err := os.ReadFile(eng.dbPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	var sources []DataSource
	if err := json.Unmarshal(data, &sources); err != nil {
		return fmt.Errorf("corrupt source registry: %w", err)
	}

	for _, ds := range sources {
		eng.sources[ds.ID] = ds
	}

	return nil
}

// save writes the registry to a temporary file and renames it into place so
// a failure mid-write never corrupts the registry. Callers must hold the
// write lock.
func (eng *Engine) save() error {
	all := make([]DataSource, 0, len(eng.sources))
	for _, ds := range eng.sources {
		all = append(all, ds)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(eng.dbPath), 0755); err != nil {
		return err
	}

	tmpPath := eng.dbPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, eng.dbPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

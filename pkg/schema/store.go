package schema

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/apperrors"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/retry"
)

// Fetcher retrieves live view metadata, typically from the Cube meta
// endpoint.
type Fetcher interface {
	FetchView(ctx context.Context, viewName string) (*models.SchemaSnapshot, error)
}

// Store holds the current schema snapshot. Reads are lock-free; refresh
// swaps the whole snapshot atomically so in-flight turns keep the
// snapshot they started with.
type Store struct {
	current  atomic.Pointer[models.SchemaSnapshot]
	fetcher  Fetcher
	viewName string
	fallback string
	logger   *zap.Logger
}

// NewStore creates a schema store backed by fetcher, with an optional
// fallback YAML view definition at fallbackPath.
func NewStore(fetcher Fetcher, viewName, fallbackPath string, logger *zap.Logger) *Store {
	return &Store{
		fetcher:  fetcher,
		viewName: viewName,
		fallback: fallbackPath,
		logger:   logger.Named("schema"),
	}
}

// Init loads the first snapshot. Transient fetch failures are retried
// with backoff; it then falls back to the static YAML view definition
// when the deployment stays unreachable.
func (s *Store) Init(ctx context.Context) error {
	snap, err := retry.DoWithResult(ctx, nil, func() (*models.SchemaSnapshot, error) {
		return s.fetcher.FetchView(ctx, s.viewName)
	})
	if err == nil {
		s.current.Store(snap)
		return nil
	}

	s.logger.Warn("live metadata fetch failed, trying fallback",
		zap.String("view", s.viewName),
		zap.Error(err))

	if s.fallback == "" {
		return fmt.Errorf("%w: %v", apperrors.ErrSchemaUnavailable, err)
	}

	snap, ferr := LoadViewYAML(s.fallback, s.viewName)
	if ferr != nil {
		s.logger.Error("fallback schema load failed", zap.Error(ferr))
		return fmt.Errorf("%w: %v", apperrors.ErrSchemaUnavailable, err)
	}

	s.current.Store(snap)
	s.logger.Info("schema loaded from fallback file",
		zap.String("path", s.fallback),
		zap.Int("measures", len(snap.Measures)),
		zap.Int("dimensions", len(snap.Dimensions)))
	return nil
}

// Refresh fetches fresh metadata and swaps it in. A failed refresh keeps
// the prior snapshot so validation continues against stale-but-valid data.
func (s *Store) Refresh(ctx context.Context) error {
	snap, err := s.fetcher.FetchView(ctx, s.viewName)
	if err != nil {
		s.logger.Warn("schema refresh failed, keeping current snapshot", zap.Error(err))
		return err
	}

	s.current.Store(snap)
	s.logger.Info("schema refreshed",
		zap.Int("measures", len(snap.Measures)),
		zap.Int("dimensions", len(snap.Dimensions)))
	return nil
}

// Snapshot returns the current snapshot, or an error if Init never
// succeeded.
func (s *Store) Snapshot() (*models.SchemaSnapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperrors.ErrSchemaUnavailable
	}
	return snap, nil
}

// Age returns how old the current snapshot is, and false when no snapshot
// is loaded.
func (s *Store) Age() (time.Duration, bool) {
	snap := s.current.Load()
	if snap == nil {
		return 0, false
	}
	return time.Since(snap.FetchedAt), true
}

// viewFile mirrors the Cube YAML view definition shape:
//
//	cubes:
//	  - name: EventsAnalytics
//	    measures:
//	      - name: totalRevenue
//	        title: Total Revenue
//	    dimensions:
//	      - name: eventDate
//	        type: time
type viewFile struct {
	Cubes []struct {
		Name     string `yaml:"name"`
		Measures []struct {
			Name        string `yaml:"name"`
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
		} `yaml:"measures"`
		Dimensions []struct {
			Name        string `yaml:"name"`
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
			Type        string `yaml:"type"`
		} `yaml:"dimensions"`
	} `yaml:"cubes"`
}

// LoadViewYAML parses a static view definition and builds a snapshot for
// the named view.
func LoadViewYAML(path, viewName string) (*models.SchemaSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read view file: %w", err)
	}

	var file viewFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse view file: %w", err)
	}

	for _, cb := range file.Cubes {
		if cb.Name != viewName {
			continue
		}

		snap := &models.SchemaSnapshot{
			ViewName:   viewName,
			Measures:   make(map[string]models.FieldInfo, len(cb.Measures)),
			Dimensions: make(map[string]models.FieldInfo, len(cb.Dimensions)),
			FetchedAt:  time.Now(),
		}

		for _, m := range cb.Measures {
			bare := models.BareFieldName(m.Name)
			snap.Measures[bare] = models.FieldInfo{
				Name:        bare,
				Title:       m.Title,
				Description: m.Description,
				Kind:        models.FieldKindCategorical,
			}
		}
		for _, d := range cb.Dimensions {
			bare := models.BareFieldName(d.Name)
			kind := models.FieldKindCategorical
			if d.Type == "time" {
				kind = models.FieldKindTime
			}
			snap.Dimensions[bare] = models.FieldInfo{
				Name:        bare,
				Title:       d.Title,
				Description: d.Description,
				Kind:        kind,
			}
		}

		return snap, nil
	}

	return nil, fmt.Errorf("view %q not found in %s", viewName, path)
}

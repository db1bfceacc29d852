package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration describes one applied or pending schema version.
type Migration struct {
	Version  int64
	Source   string
	Applied  bool
	Duration time.Duration
}

func (s *Store) provider() (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
}

// Migrate applies every pending migration and returns the ones it ran.
func (s *Store) Migrate(ctx context.Context) ([]Migration, error) {
	p, err := s.provider()
	if err != nil {
		return nil, fmt.Errorf("migration provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return nil, err
	}

	applied := make([]Migration, 0, len(results))
	for _, r := range results {
		applied = append(applied, Migration{
			Version:  r.Source.Version,
			Source:   r.Source.Path,
			Applied:  true,
			Duration: r.Duration,
		})
		s.logger.Info("Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return applied, nil
}

// MigrationStatus lists every known migration and whether it is applied.
func (s *Store) MigrationStatus(ctx context.Context) ([]Migration, error) {
	p, err := s.provider()
	if err != nil {
		return nil, fmt.Errorf("migration provider: %w", err)
	}

	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, Migration{
			Version: st.Source.Version,
			Source:  st.Source.Path,
			Applied: st.State == goose.StateApplied,
		})
	}
	return out, nil
}

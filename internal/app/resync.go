package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/habibiahmada/portfolio-api/internal/cli"
	"github.com/habibiahmada/portfolio-api/internal/config"
	"github.com/habibiahmada/portfolio-api/internal/content"
	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/logging"
	"github.com/habibiahmada/portfolio-api/internal/translation"
)

const resyncPageSize = 200

// ResyncStats reports re-derivation counters for one resync run.
type ResyncStats struct {
	Total    int
	Synced   int
	Fallback int
	Skipped  int
	Failed   int
}

func runResync(args []string) int {
	fs := flag.NewFlagSet("resync", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	kind := fs.String("kind", "", "Limit resync to one content kind")
	entityID := fs.String("entity", "", "Resync a single entity by UUID")
	provider := fs.String("provider", "", "Translation provider name (for example: local, mymemory)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	normalizedKind := content.NormalizeKind(*kind)
	if normalizedKind != "" && !content.IsKind(normalizedKind) {
		fmt.Fprintf(os.Stderr, "--kind must be one of: %s\n", strings.Join(content.Kinds(), ", "))
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("resync failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	registry := translation.NewDefaultRegistry(cfg.TranslationProvider)
	syncer, err := buildSyncer(cfg, pool, registry, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize synchronizer: %v\n", err)
		return 1
	}
	defaultLanguage := strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))

	entities, err := collectResyncEntities(ctx, pool, normalizedKind, strings.TrimSpace(*entityID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list entities: %v\n", err)
		return 1
	}
	if len(entities) == 0 {
		fmt.Println("resync: no entities matched")
		return 0
	}

	stats := ResyncStats{Total: len(entities)}
	for idx, entity := range entities {
		fmt.Printf("Resyncing %d/%d kind=%s entity=%s\n", idx+1, len(entities), entity.Kind, entity.EntityID)

		result, err := resyncEntity(ctx, pool, syncer, entity, strings.TrimSpace(*provider), defaultLanguage)
		if err != nil {
			if errors.Is(err, db.ErrNoRows) {
				stats.Skipped++
				logger.Warn().Str("entity_id", entity.EntityID).Msg("no authoritative translation, skipping")
				continue
			}
			stats.Failed++
			logger.Error().Err(err).Str("entity_id", entity.EntityID).Msg("resync entity failed")
			continue
		}

		stats.Synced++
		for _, row := range result.Rows {
			if row.FallbackCopy {
				stats.Fallback++
				break
			}
		}
	}

	fmt.Printf(
		"resync kind=%s total=%d synced=%d fallback=%d skipped=%d failed=%d\n",
		orAll(normalizedKind),
		stats.Total,
		stats.Synced,
		stats.Fallback,
		stats.Skipped,
		stats.Failed,
	)

	if stats.Failed > 0 {
		return 1
	}
	return 0
}

// entityLister is the subset of *db.Pool the resync command reads entities
// through.
type entityLister interface {
	GetEntity(ctx context.Context, entityID string) (db.EntityRow, error)
	ListEntities(ctx context.Context, kind string, publishedOnly bool, limit, offset int) ([]db.EntityRow, error)
}

// collectResyncEntities resolves the entity set for one run. An empty kind
// covers every known kind.
func collectResyncEntities(ctx context.Context, store entityLister, kind, entityID string) ([]db.EntityRow, error) {
	if entityID != "" {
		entity, err := store.GetEntity(ctx, entityID)
		if err != nil {
			if errors.Is(err, db.ErrNoRows) {
				return nil, fmt.Errorf("entity %s not found", entityID)
			}
			return nil, err
		}
		if kind != "" && entity.Kind != kind {
			return nil, fmt.Errorf("entity %s has kind %s, not %s", entityID, entity.Kind, kind)
		}
		return []db.EntityRow{entity}, nil
	}

	kinds := []string{kind}
	if kind == "" {
		kinds = content.Kinds()
	}

	entities := make([]db.EntityRow, 0, resyncPageSize)
	for _, k := range kinds {
		for offset := 0; ; offset += resyncPageSize {
			page, err := store.ListEntities(ctx, k, false, resyncPageSize, offset)
			if err != nil {
				return nil, err
			}
			entities = append(entities, page...)
			if len(page) < resyncPageSize {
				break
			}
		}
	}
	return entities, nil
}

func resyncEntity(ctx context.Context, pool *db.Pool, syncer *content.Syncer, entity db.EntityRow, provider, defaultLanguage string) (*content.SyncResult, error) {
	authoritative, err := pool.GetAuthoritativeTranslation(ctx, entity.EntityID, defaultLanguage)
	if err != nil {
		return nil, err
	}

	record, err := content.ParseRecord(authoritative.EntityID, authoritative.Language, authoritative.Fields)
	if err != nil {
		return nil, err
	}

	return syncer.Sync(ctx, entity.Kind, record, content.SyncOptions{Provider: provider})
}

func orAll(kind string) string {
	if kind == "" {
		return "all"
	}
	return kind
}

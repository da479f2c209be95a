package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"campus-quiz-service/internal/config"
	"campus-quiz-service/internal/infra/postgres"
	infraredis "campus-quiz-service/internal/infra/redis"
	"campus-quiz-service/internal/seed"
	"github.com/spf13/cobra"
)

// NewImportCmd loads a seed file into Postgres and drops stale cached question sets.
func NewImportCmd(configPath *string) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import categories and questions from a seed YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if seedPath == "" {
				seedPath = cfg.Quiz.Seed
			}
			return runImport(cmd.Context(), cfg, seedPath, newLogger(os.Stderr, cfg))
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "seed YAML path (defaults to quiz.seed)")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, seedPath string, logger *slog.Logger) error {
	if seedPath == "" {
		return fmt.Errorf("no seed file given")
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	data, err := seed.Load(seedPath)
	if err != nil {
		return err
	}

	db := openBunDB(cfg.Postgres.URL)
	defer db.Close()
	if err := migrateDB(ctx, db, logger); err != nil {
		return err
	}
	result, err := postgres.Import(ctx, db, data)
	if err != nil {
		return err
	}
	logger.Info("seed imported", "path", seedPath, "categories", result.Categories, "questions", result.Questions)

	if cfg.Redis.Addr == "" {
		return nil
	}
	client := newRedisClient(cfg)
	defer client.Close()
	cache := infraredis.NewQuestionRepository(client, nil, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
	for _, c := range data.Categories {
		if err := cache.Invalidate(ctx, c.ID); err != nil {
			logger.Warn("invalidate cached questions", "category_id", c.ID, "error", err)
		}
	}
	return nil
}

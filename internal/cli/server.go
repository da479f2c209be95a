package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/config"
	"campus-quiz-service/internal/infra/memory"
	"campus-quiz-service/internal/infra/postgres"
	infraredis "campus-quiz-service/internal/infra/redis"
	"campus-quiz-service/internal/seed"
	transport "campus-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends are the stores the service runs on; memory ones unless Postgres is configured.
type backends struct {
	loader     memory.QuestionLoader
	categories app.CategoryRepository
	attempts   app.AttemptRepository
	close      func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	stores, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var questions app.QuestionRepository
	var sessions app.SessionRepository
	var redisSessions *infraredis.SessionStore
	if redisClient != nil {
		questions = infraredis.NewQuestionRepository(redisClient, stores.loader, quizTTL)
		redisSessions = infraredis.NewSessionStore(redisClient, redisTTL)
		sessions = redisSessions
	} else {
		questions = memory.NewQuestionRepository(stores.loader, quizTTL)
		sessions = memory.NewSessionStore()
	}

	service := app.NewQuizService(sessions, questions, stores.categories, stores.attempts, app.WithLogger(logger))
	api := transport.NewAPIHandler(service, logger)
	wsHandler := transport.NewWSHandler(service, logger)
	if redisSessions != nil {
		api.WithLiveCounter(redisSessions)
		wsHandler.WithSessionToucher(redisSessions)
	}

	mux := http.NewServeMux()
	api.Register(mux)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (backends, error) {
	if cfg.Postgres.URL == "" {
		data := seed.Sample()
		if cfg.Quiz.Seed != "" {
			loaded, err := seed.Load(cfg.Quiz.Seed)
			if err != nil {
				return backends{}, err
			}
			data = loaded
		}
		logger.Info("using in-memory stores", "categories", len(data.Categories), "questions", len(data.Questions))
		catalog := memory.NewCatalog(data.Categories, data.Questions)
		return backends{
			loader:     catalog,
			categories: catalog,
			attempts:   memory.NewAttemptStore(),
			close:      func() {},
		}, nil
	}

	db := openBunDB(cfg.Postgres.URL)
	if err := migrateDB(ctx, db, logger); err != nil {
		db.Close()
		return backends{}, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return backends{}, err
	}
	return backends{
		loader:     postgres.NewQuestionLoader(pool),
		categories: postgres.NewCategoryStore(pool),
		attempts:   postgres.NewAttemptStore(db),
		close: func() {
			pool.Close()
			db.Close()
		},
	}, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

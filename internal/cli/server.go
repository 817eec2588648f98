package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizly-service/internal/app"
	"quizly-service/internal/config"
	"quizly-service/internal/domain"
	"quizly-service/internal/genai"
	"quizly-service/internal/infra/memory"
	pgstore "quizly-service/internal/infra/postgres"
	redisrepo "quizly-service/internal/infra/redis"
	transport "quizly-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var store app.QuizStore
	var loader memory.QuizLoader
	if pool != nil {
		pg := pgstore.NewQuizStore(pool)
		store, loader = pg, pg
	} else {
		mem := memory.NewQuizStore(seedQuizzes()...)
		store, loader = mem, mem
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var cache app.QuizRepository
	if redisClient != nil {
		cache = redisrepo.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		cache = memory.NewQuizRepository(loader, quizTTL)
	}

	var generator app.Generator
	if cfg.Generator.BaseURL != "" {
		generator = genai.NewClient(genai.Config{
			BaseURL:    cfg.Generator.BaseURL,
			APIKey:     cfg.Generator.APIKey,
			Model:      cfg.Generator.Model,
			ImageModel: cfg.Generator.ImageModel,
			Timeout:    config.TTLDuration(cfg.Generator.Timeout, 2*time.Minute),
		})
	}

	service := app.NewQuizService(store, cache, generator, app.TickerScheduler{})
	registry := memory.NewAttemptRegistry()
	wsHandler := transport.NewWSHandler(service, registry)
	restHandler := transport.NewRESTHandler(service, registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/play", wsHandler.ServeWS)
	restHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizly service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	registry.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedQuizzes gives a fresh install something to play with; a Postgres-backed
// deployment ignores these.
func seedQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:          "quiz-js-basics",
			Title:       "JavaScript Fundamentals",
			Description: "Core language concepts every web developer should know.",
			Topic:       "Programming",
			CreatedAt:   time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC).UnixMilli(),
			TimerMode:   domain.TimerPerQuestion,
			TimeLimit:   30,
			Questions: []domain.Question{
				{
					ID:   "q-js-1",
					Text: "Which keyword declares a variable that cannot be reassigned?",
					Options: []domain.Option{
						{ID: "o-js-1a", Text: "var", IsCorrect: false},
						{ID: "o-js-1b", Text: "let", IsCorrect: false},
						{ID: "o-js-1c", Text: "const", IsCorrect: true},
					},
					Explanation: "const declares variables whose binding cannot be reassigned.",
				},
				{
					ID:   "q-js-2",
					Text: "What is a closure?",
					Options: []domain.Option{
						{ID: "o-js-2a", Text: "A function with access to its outer scope", IsCorrect: true},
						{ID: "o-js-2b", Text: "A way to close a browser tab", IsCorrect: false},
						{ID: "o-js-2c", Text: "A loop that never terminates", IsCorrect: false},
					},
					Explanation: "A closure is a function bundled with references to its surrounding state.",
				},
				{
					ID:   "q-js-3",
					Text: "Which function parses a string to an integer?",
					Options: []domain.Option{
						{ID: "o-js-3a", Text: "parseInt()", IsCorrect: true},
						{ID: "o-js-3b", Text: "toString()", IsCorrect: false},
						{ID: "o-js-3c", Text: "Number.isInteger()", IsCorrect: false},
					},
					Explanation: "parseInt() parses a string argument and returns an integer of the specified radix.",
				},
			},
		},
		{
			ID:          "quiz-space-sprint",
			Title:       "Space Sprint",
			Description: "A quick-fire astronomy round against one shared clock.",
			Topic:       "Science",
			CreatedAt:   time.Date(2025, 2, 3, 14, 30, 0, 0, time.UTC).UnixMilli(),
			TimerMode:   domain.TimerTotalDuration,
			TimeLimit:   60,
			Questions: []domain.Question{
				{
					ID:   "q-sp-1",
					Text: "Which planet is known as the Red Planet?",
					Options: []domain.Option{
						{ID: "o-sp-1a", Text: "Venus", IsCorrect: false},
						{ID: "o-sp-1b", Text: "Mars", IsCorrect: true},
						{ID: "o-sp-1c", Text: "Jupiter", IsCorrect: false},
					},
				},
				{
					ID:   "q-sp-2",
					Text: "How long does light take to travel from the Sun to Earth?",
					Options: []domain.Option{
						{ID: "o-sp-2a", Text: "About 8 minutes", IsCorrect: true},
						{ID: "o-sp-2b", Text: "About 8 seconds", IsCorrect: false},
						{ID: "o-sp-2c", Text: "About 8 hours", IsCorrect: false},
					},
				},
			},
		},
	}
}

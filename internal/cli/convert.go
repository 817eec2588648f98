package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"quizly-service/internal/app"
	"quizly-service/internal/codec"
	"quizly-service/internal/config"
	"quizly-service/internal/domain"
	pgstore "quizly-service/internal/infra/postgres"
)

// NewExportCmd writes a stored quiz to an xlsx interchange document.
func NewExportCmd(configPath *string) *cobra.Command {
	var quizID, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a quiz to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			quiz, err := store.GetQuiz(cmd.Context(), quizID)
			if err != nil {
				return err
			}
			data, err := codec.Export(quiz)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = codec.ExportFileName(quiz.Title)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			log.Printf("exported quiz %s to %s", quizID, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&quizID, "id", "", "quiz id to export")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (defaults to a name derived from the title)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// NewImportCmd loads an xlsx interchange document into the quiz library.
func NewImportCmd(configPath *string) *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a quiz from an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			draft, err := codec.Import(data)
			if err != nil {
				return err
			}

			store, cleanup, err := openStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			service := app.NewQuizService(store, storeRepository{store}, nil, app.TickerScheduler{})
			quiz, err := service.CreateFromDraft(cmd.Context(), draft)
			if err != nil {
				return err
			}
			log.Printf("imported quiz %q with %d questions as %s", quiz.Title, len(quiz.Questions), quiz.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "xlsx file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// openStore connects to the configured Postgres store. The convert commands
// need durable storage; without Postgres there is nothing to export from or
// import into.
func openStore(ctx context.Context, configPath string) (*pgstore.QuizStore, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("postgres url not configured")
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	return pgstore.NewQuizStore(pool), pool.Close, nil
}

// storeRepository serves uncached reads when no cache layer is wired.
type storeRepository struct {
	store *pgstore.QuizStore
}

func (r storeRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.store.GetQuiz(ctx, quizID)
}

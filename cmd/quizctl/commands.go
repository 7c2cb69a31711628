package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quizethic/quizethic-ai/internal/app"
	"github.com/quizethic/quizethic-ai/internal/export"
	"github.com/quizethic/quizethic-ai/internal/platform/config"
	"github.com/quizethic/quizethic-ai/internal/platform/database"
	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

const cliUserID = "quizctl"

// cli carries what the commands share. connect and build are swapped in tests.
type cli struct {
	out     io.Writer
	cfg     *config.Config
	connect func(context.Context, *config.Config) (*app.App, error)
	build   func(context.Context, *config.Config) (*app.App, error)
	migrate func(context.Context, *config.Config) ([]string, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{out: out, connect: app.Connect, build: app.New, migrate: migrate}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "quizctl",
		Short:         "Operate the Quizethic quiz service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg != nil {
				return nil
			}
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(app.NewLogger(cmd.ErrOrStderr(), cfg.Log))
			c.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(c),
		newTierCmd(c),
		newUsageCmd(c),
		newGenerateCmd(c),
	)
	return root
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.migrate(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(c.out, "schema up to date")
			}
			for _, name := range names {
				fmt.Fprintln(c.out, "applied", name)
			}
			return nil
		},
	}
}

func migrate(ctx context.Context, cfg *config.Config) ([]string, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("QUIZ_DATABASE_URL is required")
	}
	db, err := database.New(ctx, cfg.Database.URL, 2, 1)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return database.Migrate(ctx, db.Pool)
}

func newTierCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Show or change a user's subscription tier",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Print a user's tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.connectTiers(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tier, err := a.Tiers.GetTier(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s\t%s\n", args[0], tier)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <user-id> <free|pro|enterprise>",
		Short: "Change a user's tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := usage.ParseTier(args[1])
			if err != nil {
				return err
			}
			a, err := c.connectTiers(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Tiers.SetTier(cmd.Context(), args[0], tier); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s\t%s\n", args[0], tier)
			return nil
		},
	})
	return cmd
}

func (c *cli) connectTiers(ctx context.Context) (*app.App, error) {
	a, err := c.connect(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	if a.DB == nil {
		slog.Warn("no database configured, tier changes only last for this process")
	}
	return a, nil
}

func newUsageCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "usage <user-id>",
		Short: "Print today's quota usage for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.connect(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.Gate.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printJSON(st)
		},
	}
}

func newGenerateCmd(c *cli) *cobra.Command {
	var (
		topic      string
		difficulty string
		count      int
		xlsxPath   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz locally without quota or history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.Pipeline.Generate(cmd.Context(), quiz.Request{
				UserID:     cliUserID,
				Topic:      topic,
				Difficulty: quiz.Difficulty(difficulty),
				Count:      count,
			})
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := writeXLSX(xlsxPath, &q); err != nil {
					return err
				}
				slog.Info("workbook written", "path", xlsxPath)
			}
			return c.printJSON(q)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "exam, subject or topic to quiz on")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(quiz.DifficultyMedium), "easy, medium or hard")
	cmd.Flags().IntVar(&count, "count", quiz.DefaultCount, fmt.Sprintf("number of questions (1-%d)", quiz.MaxCount))
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the quiz as an XLSX workbook to this path")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func writeXLSX(path string, q *quiz.Quiz) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteXLSX(f, q)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

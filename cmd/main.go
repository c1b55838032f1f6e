package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/rejap-backend/internal/app"
	"github.com/yungbote/rejap-backend/internal/services"
)

var rootCmd = &cobra.Command{
	Use:           "rejap",
	Short:         "Adaptive Japanese learning backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			return a.Migrate()
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the curriculum (embedded default, or --file .yaml/.xlsx)",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			res, err := a.Seed(ctx, file)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var prewarmCmd = &cobra.Command{
	Use:   "prewarm",
	Short: "Generate questions for quizzes that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			res, err := a.Prewarm(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development bearer token signed with JWT_SECRET_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if subject == "" {
			return fmt.Errorf("--subject is required")
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			tok, err := a.Services.Auth.IssueToken(services.Identity{Subject: subject, Email: email, Name: name}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().String("file", "", "curriculum file (.yaml, .yml or .xlsx); empty uses the embedded default")
	prewarmCmd.Flags().Int("limit", 0, "max quizzes to populate (default QUIZ_PREWARM_BATCH)")
	tokenCmd.Flags().String("subject", "", "identity subject (sub claim)")
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().String("name", "", "name claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, prewarmCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Start(); err != nil {
		return err
	}
	return a.Run(ctx)
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

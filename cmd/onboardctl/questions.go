package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/services"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Work with generated question banks",
}

var questionsPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate a question bank and print it without storing it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := newEnv(false)
		if err != nil {
			return err
		}
		defer e.log.Sync() //nolint:errcheck

		ctx := cmd.Context()
		gemini, err := services.NewGeminiService(ctx, e.cfg.Gemini, e.log.Named("gemini"))
		if err != nil {
			return err
		}

		generator, err := services.NewQuestionGenerator(gemini, services.NewPromptBuilder(), e.log.Named("questions"))
		if err != nil {
			return err
		}

		bank, err := generator.GenerateQuestionBank(ctx)
		if err != nil {
			return fmt.Errorf("generating question bank: %w", err)
		}

		e.log.Debug("question bank generated", zap.Int("count", len(bank)))
		for _, q := range bank {
			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", q.Field, q.Bot)
		}
		return nil
	},
}

func init() {
	questionsCmd.AddCommand(questionsPreviewCmd)
	rootCmd.AddCommand(questionsCmd)
}

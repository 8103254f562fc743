package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/logger"
	"alfredoptarigan/interview-onboarding/internal/services"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Work with the resume vector index",
}

var resumeIndexCmd = &cobra.Command{
	Use:   "index <user_id> <file.pdf>",
	Short: "Chunk, embed and index a PDF resume for a user without touching the database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		path := args[1]
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

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

		index, err := services.NewResumeIndex(e.cfg.Qdrant, e.log.Named("qdrant"))
		if err != nil {
			return err
		}
		if err := index.InitCollection(ctx); err != nil {
			return err
		}

		content, err := services.NewPDFParserService().ExtractText(path)
		if err != nil {
			return err
		}

		chunks := services.NewTextChunker().ChunkText(content.Text, services.DefaultChunkSize, services.DefaultChunkOverlap)
		e.log.Info("resume chunked",
			zap.String(logger.FieldUserID, userID.String()),
			zap.Int("pages", content.PageCount),
			zap.Int("chunks", len(chunks)),
		)

		embeddings := make([][]float32, 0, len(chunks))
		for i, chunk := range chunks {
			embedding, err := gemini.GenerateEmbedding(ctx, chunk)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			embeddings = append(embeddings, embedding)
		}

		if err := index.ReplaceUserChunks(ctx, userID, chunks, embeddings); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks for %s\n", len(chunks), userID)
		return nil
	},
}

func init() {
	resumeCmd.AddCommand(resumeIndexCmd)
	rootCmd.AddCommand(resumeCmd)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askmto/askmto/internal/chunker"
	"github.com/askmto/askmto/internal/extract"
	"github.com/askmto/askmto/internal/index"
	"github.com/askmto/askmto/internal/keywords"
	"github.com/askmto/askmto/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index <handbook.pdf>",
	Short: "Build the handbook index from a PDF",
	Long: `Extracts text from the handbook PDF (falling back to OCR on pages with
little or no text layer), chunks it, annotates keywords, embeds every
chunk, and commits the result as a new index build. The previous build
stays live until the new one is fully written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdfPath := args[0]
		if _, err := os.Stat(pdfPath); err != nil {
			return fmt.Errorf("handbook PDF: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		var ocr extract.Engine
		if cfg.OCREnabled {
			ocr = extract.NewTesseractEngine(cfg.OCRLanguage)
		}
		extractor := extract.NewExtractor(ocr, cfg.OCRMinChars, cfg.OCRDPI, logger)

		builder := index.NewBuilder(
			extractor,
			chunker.Config{MaxSize: cfg.ChunkSize, MinSize: cfg.ChunkMinSize, Overlap: cfg.ChunkOverlap},
			keywords.NewExtractor(8),
			embedder,
			progress.NewReporter(),
			logger,
		)

		m, err := builder.Build(cmd.Context(), pdfPath, cfg.IndexDir)
		if err != nil {
			return err
		}

		fmt.Printf("Indexed %d chunks into %s (build %s, model %s)\n",
			m.ChunkCount, cfg.IndexDir, m.BuildID, m.EmbeddingModel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

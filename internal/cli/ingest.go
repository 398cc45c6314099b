package cli

import (
	"fmt"

	"ragnotes/internal/database"
	"ragnotes/internal/ingest"
	"ragnotes/internal/ledger"
	"ragnotes/internal/logger"
	"ragnotes/internal/processor"

	"github.com/spf13/cobra"
)

var (
	ingestCommitOnSuccess bool
	ingestDryRun          bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [folder]",
	Short: "Index new PDF documents",
	Long: `Splits every PDF in the folder that is not yet listed in the ledger into
overlapping chunks, embeds them and stores them in the vector index.
The folder defaults to ingest.folder from the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestCommitOnSuccess, "commit-on-success", false,
		"record a document in the ledger only after its chunks are indexed")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false,
		"chunk and embed into memory only, leaving the database and ledger untouched")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appConfig

	folder := cfg.Ingest.Folder
	if len(args) > 0 {
		folder = args[0]
	}

	embedder, closeEmbedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer closeEmbedder()

	l, err := ledger.Load(cfg.Ingest.LedgerPath)
	if err != nil {
		return err
	}
	ledgerPath := l.Path()

	var index database.Index
	if ingestDryRun {
		index = database.NewMemoryIndex(embedder)
		l = l.Detached()
	} else {
		var closeIndex func()
		index, closeIndex, err = newIndex(ctx, cfg, embedder)
		if err != nil {
			return fmt.Errorf("failed to open index: %w", err)
		}
		defer closeIndex()
	}

	splitter := processor.NewSplitter(
		processor.WithChunkSize(cfg.Ingest.ChunkSize),
		processor.WithChunkOverlap(cfg.Ingest.ChunkOverlap),
		processor.WithMinLength(cfg.Ingest.MinChunkLength),
	)
	pipeline := ingest.NewPipeline(newExtractor(), splitter, embedder, index, l,
		cfg.Ingest.CommitOnSuccess || ingestCommitOnSuccess, logger.Component(appLog, "ingest"), appMetrics)

	n, err := pipeline.Ingest(ctx, folder)
	if err != nil {
		return fmt.Errorf("ingestion failed after %d chunks: %w", n, err)
	}

	switch {
	case n == 0:
		cmd.Printf("No new documents to index (ledger: %s).\n", ledgerPath)
	case ingestDryRun:
		cmd.Printf("Dry run: %d chunks from %s would be indexed.\n", n, folder)
	default:
		cmd.Printf("Indexed %d chunks from %s, ledger updated at %s.\n", n, folder, ledgerPath)
	}
	return nil
}

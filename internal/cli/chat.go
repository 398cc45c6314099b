package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"ragnotes/internal/conversation"
	"ragnotes/internal/database"
	"ragnotes/internal/logger"
	"ragnotes/internal/models"
	"ragnotes/internal/retrieval"

	"github.com/spf13/cobra"
)

const topicResetNotice = "(New topic detected, earlier questions were set aside.)"

var chatQuery string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the indexed documents",
	Long: `Starts an interactive conversation answered only from the indexed documents.
Follow-up questions on the same topic are searched together with the earlier
ones; a question on a new topic starts over. Use -q to ask a single question.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatQuery, "query", "q", "", "answer a single question and exit")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := appConfig

	embedder, closeEmbedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer closeEmbedder()

	index, closeIndex, err := newIndex(ctx, cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer closeIndex()

	gateway, err := newGateway(cfg, false)
	if err != nil {
		return fmt.Errorf("failed to create generation gateway: %w", err)
	}

	conv := cfg.Conversation
	session := retrieval.NewSession(
		conversation.NewMemory(conversation.Policy{MaxTurns: conv.MaxTurns, RetainTurns: conv.RetainTurns}),
		conversation.NewDetector(embedder, conv.TopicThreshold),
		retrieval.NewAssembler(index, conv.TopK, appMetrics),
		gateway,
		retrieval.ResetMode(conv.Reset),
		logger.Component(appLog, "chat"),
		appMetrics,
	)

	if chatQuery != "" {
		resp, err := session.Ask(ctx, chatQuery)
		if err != nil {
			return fmt.Errorf("failed to answer question: %w", err)
		}
		cmd.Print(formatAnswer(resp))
		return nil
	}

	if lister, ok := index.(database.SourceLister); ok {
		sources, err := lister.Sources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list indexed sources: %w", err)
		}
		printSources(cmd, sources)
	}
	return runInteractiveMode(ctx, cmd, session)
}

func printSources(cmd *cobra.Command, sources []string) {
	if len(sources) == 0 {
		cmd.Println("No documents indexed yet, run 'ragnotes ingest' first")
		return
	}
	cmd.Printf("Indexed sources (%d): %s\n", len(sources), strings.Join(sources, ", "))
}

func runInteractiveMode(ctx context.Context, cmd *cobra.Command, session *retrieval.Session) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())

	cmd.Println("Ask questions about your documents (type 'exit' to quit, '/reset' to start over)")

	for {
		cmd.Print("\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/reset":
			session.Memory.Clear()
			cmd.Println("Conversation cleared")
			continue
		}

		resp, err := session.Ask(ctx, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			cmd.Printf("Error: %v\n", err)
			continue
		}
		cmd.Print(formatAnswer(resp))
	}
	return scanner.Err()
}

func formatAnswer(response *models.Response) string {
	var sb strings.Builder

	if response.TopicReset {
		sb.WriteString(topicResetNotice)
		sb.WriteString("\n\n")
	}

	sb.WriteString(response.Answer)
	sb.WriteString("\n\n")

	if len(response.Sources) > 0 {
		sb.WriteString("Sources:\n")
		for i, source := range response.Sources {
			sb.WriteString(fmt.Sprintf("  %d. [%s, Page: %s]\n", i+1, source.Source, source.Page))
		}
	}

	return sb.String()
}

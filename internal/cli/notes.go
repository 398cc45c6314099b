package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"ragnotes/internal/llm"
	"ragnotes/internal/models"

	"github.com/spf13/cobra"
)

var notesOutput string

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Work with generated notes files",
}

var notesMarkdownCmd = &cobra.Command{
	Use:   "markdown <notes.json>",
	Short: "Render a notes file as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesMarkdown,
}

var notesAskCmd = &cobra.Command{
	Use:   "ask <notes.json> <question>",
	Short: "Ask a question about a notes file",
	Long: `Sends the notes and the question to the model and prints its answer,
itself structured as notes, rendered as Markdown.`,
	Args: cobra.ExactArgs(2),
	RunE: runNotesAsk,
}

func init() {
	notesMarkdownCmd.Flags().StringVarP(&notesOutput, "output", "o", "", "write Markdown to this file instead of stdout")
	notesCmd.AddCommand(notesMarkdownCmd, notesAskCmd)
	rootCmd.AddCommand(notesCmd)
}

func readNotes(path string) (*models.Notes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	var notes models.Notes
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("failed to parse notes %s: %w", path, err)
	}
	return &notes, nil
}

func runNotesMarkdown(cmd *cobra.Command, args []string) error {
	notes, err := readNotes(args[0])
	if err != nil {
		return err
	}

	md := notes.Markdown()
	if notesOutput == "" {
		cmd.Print(md)
		return nil
	}
	if err := os.WriteFile(notesOutput, []byte(md), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	cmd.Printf("Markdown written to %s\n", notesOutput)
	return nil
}

func runNotesAsk(cmd *cobra.Command, args []string) error {
	notes, err := readNotes(args[0])
	if err != nil {
		return err
	}

	gateway, err := newGateway(appConfig, true)
	if err != nil {
		return fmt.Errorf("failed to create generation gateway: %w", err)
	}

	answer, err := llm.NewNotesGenerator(gateway).Generate(cmd.Context(), llm.NotesQuestionPrompt(notes.FlatText(), args[1]))
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}
	cmd.Print(answer.Markdown())
	return nil
}

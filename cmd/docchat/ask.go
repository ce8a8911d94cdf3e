package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/docchat/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question about the document",
	Example: `  docchat ask --file manual.pdf "How do I reset the device?"
  docchat ask --github acme/handbook/docs/onboarding.md@main "Who approves leave?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Pipeline.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printAnswer(os.Stdout, answer, showSource)
	return nil
}

func printAnswer(w io.Writer, answer *rag.Answer, sources bool) {
	fmt.Fprintln(w, answer.Text)
	if !sources {
		return
	}
	fmt.Fprintln(w)
	for i, s := range answer.Sources {
		fmt.Fprintf(w, "[%d] page %d, score %.3f: %s\n", i+1, s.Chunk.PageNumber, s.Score, preview(s.Chunk.Text, 120))
	}
}

// preview shortens text to at most n runes.
func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

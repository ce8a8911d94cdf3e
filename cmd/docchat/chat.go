package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/docchat/internal/rag"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the document interactively",
	Long:  "Loads the document once, then answers each line read from stdin. Enter /quit or send EOF to exit.",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return runREPL(ctx, os.Stdin, os.Stdout, a.Pipeline.Ask)
}

type askFunc func(ctx context.Context, question string) (*rag.Answer, error)

// runREPL answers one question per input line. Failed questions are reported
// and the loop continues.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, ask askFunc) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		answer, err := ask(ctx, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printAnswer(out, answer, showSource)
		fmt.Fprintln(out)
	}
}

package rag

import (
	"fmt"
	"strings"

	"github.com/bull/docchat/internal/storage"
)

const promptHeader = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer."

// BuildPrompt assembles the question-answering prompt. Chunks appear in the
// order given, each tagged with its page number; none are dropped.
func BuildPrompt(chunks []storage.ScoredChunk, question string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")

	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d] %s", c.Chunk.PageNumber, c.Chunk.Text)
	}

	fmt.Fprintf(&b, "\n\nQuestion: %s\nHelpful Answer:", strings.TrimSpace(question))
	return b.String()
}

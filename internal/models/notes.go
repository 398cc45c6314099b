package models

import (
	"fmt"
	"strings"
)

// Block types allowed in a notes document
const (
	BlockHeader     = "header"
	BlockParagraph  = "paragraph"
	BlockHighlight  = "highlight"
	BlockAnnotation = "annotation"
	BlockCode       = "code"
)

// Notes is the structured output every summarization prompt asks the model for
type Notes struct {
	Content []Block `json:"content"`
}

// Block is a typed element of a notes document
type Block struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Note     string `json:"note,omitempty"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}

// Markdown renders the notes as Markdown lines suitable for mind-map tools
func (n *Notes) Markdown() string {
	var sb strings.Builder
	for _, b := range n.Content {
		text := strings.ReplaceAll(b.Text, "•", "-")
		switch b.Type {
		case BlockHeader:
			sb.WriteString("\n## " + text + "\n\n")
		case BlockParagraph, BlockHighlight:
			sb.WriteString(text + "\n\n")
		case BlockAnnotation:
			sb.WriteString(fmt.Sprintf("**%s**\n- %s\n\n", text, b.Note))
		case BlockCode:
			sb.WriteString(fmt.Sprintf("```%s\n%s\n```\n\n", b.Language, b.Code))
		default:
			sb.WriteString(text + "\n\n")
		}
	}
	return sb.String()
}

// FlatText flattens the notes into a single plain-text string
func (n *Notes) FlatText() string {
	parts := make([]string, 0, len(n.Content))
	for _, b := range n.Content {
		switch b.Type {
		case BlockAnnotation:
			parts = append(parts, b.Text+": "+b.Note)
		case BlockCode:
			parts = append(parts, b.Code)
		default:
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

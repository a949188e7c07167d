package ai

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Chunker splits raw document text into overlapping word-bounded windows
// sized for embedding. FAQ content arrives as markdown from the admin
// panel, so input is reduced to plain text before windowing.
type Chunker struct {
	maxWords int
	overlap  int
}

func NewChunker(maxWords, overlap int) *Chunker {
	if maxWords <= 0 {
		maxWords = 180
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{maxWords: maxWords, overlap: overlap}
}

func (c *Chunker) Chunk(raw string) []string {
	return SplitWords(ExtractPlainText(raw), c.maxWords, c.overlap)
}

// SplitWords windows the text on word boundaries: window i starts at
// i*step with step=max(1,maxWords-overlap), so overlap >= maxWords
// degrades to a one-word step instead of looping forever.
func SplitWords(text string, maxWords, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := maxWords - overlap
	if step < 1 {
		step = 1
	}
	var chunks []string
	for i := 0; i < len(words); i += step {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// ExtractPlainText strips markdown structure by walking the goldmark AST
// and collecting text segments. Plain prose passes through unchanged.
func ExtractPlainText(markdown string) string {
	md := goldmark.New()
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	var sb strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Text:
			sb.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			for i := 0; i < n.Lines().Len(); i++ {
				seg := n.Lines().At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.CodeBlock:
			for i := 0; i < n.Lines().Len(); i++ {
				seg := n.Lines().At(i)
				sb.Write(seg.Value(source))
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

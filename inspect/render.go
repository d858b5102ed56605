package inspect

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Highlight styles a JSON document for the named chroma formatter, for
// example "terminal256" or "html". Unknown formatters write plain text.
func Highlight(w io.Writer, src []byte, format string) error {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	formatter := formatters.Get(format)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := lexer.Tokenise(nil, string(src))
	if err != nil {
		return fmt.Errorf("tokenise: %w", err)
	}
	if err := formatter.Format(w, style, iterator); err != nil {
		return fmt.Errorf("format %s: %w", format, err)
	}
	return nil
}

var columns = []string{"ID", "Label", "State", "Value", "Listeners", "Dependents", "Dependencies", "Keep alive"}

// Markdown renders entries as a GitHub-flavored Markdown table.
func Markdown(entries []Entry) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, e := range entries {
		cells := []string{
			"`" + e.ID + "`",
			cell(e.Label),
			e.State,
			cell(e.Value),
			strconv.Itoa(e.Listeners),
			strconv.Itoa(e.Dependents),
			strconv.Itoa(e.Dependencies),
			strconv.FormatBool(e.KeepAlive),
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders entries as an HTML table.
func HTML(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(entries)), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

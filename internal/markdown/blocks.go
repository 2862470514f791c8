// Package markdown converts captured markdown content into the editor's
// block format so applied inbox items render like hand-written pages.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/erewhon/nous-sub005/internal/storage"
)

var parser = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Strikethrough,
	),
)

// ToBlocks parses markdown content and returns editor blocks. Unknown node
// kinds degrade to paragraph blocks; plain text input yields a single
// paragraph per line group.
func ToBlocks(content string) []storage.EditorBlock {
	src := []byte(content)
	doc := parser.Parser().Parse(text.NewReader(src))

	blocks := make([]storage.EditorBlock, 0)
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			blocks = append(blocks, storage.EditorBlock{
				Type: "header",
				Data: map[string]any{
					"text":  nodeText(n, src),
					"level": n.Level,
				},
			})
		case *ast.FencedCodeBlock:
			blocks = append(blocks, codeBlock(n.Lines(), src))
		case *ast.CodeBlock:
			blocks = append(blocks, codeBlock(n.Lines(), src))
		case *ast.List:
			style := "unordered"
			if n.IsOrdered() {
				style = "ordered"
			}
			items := make([]string, 0, n.ChildCount())
			for li := n.FirstChild(); li != nil; li = li.NextSibling() {
				items = append(items, nodeText(li, src))
			}
			blocks = append(blocks, storage.EditorBlock{
				Type: "list",
				Data: map[string]any{"style": style, "items": items},
			})
		case *ast.Blockquote:
			blocks = append(blocks, storage.EditorBlock{
				Type: "quote",
				Data: map[string]any{"text": nodeText(n, src)},
			})
		case *ast.ThematicBreak:
			blocks = append(blocks, storage.EditorBlock{
				Type: "delimiter",
				Data: map[string]any{},
			})
		default:
			txt := nodeText(node, src)
			if strings.TrimSpace(txt) == "" {
				continue
			}
			blocks = append(blocks, storage.EditorBlock{
				Type: "paragraph",
				Data: map[string]any{"text": txt},
			})
		}
	}

	return blocks
}

func codeBlock(lines *text.Segments, src []byte) storage.EditorBlock {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return storage.EditorBlock{
		Type: "code",
		Data: map[string]any{"code": strings.TrimRight(buf.String(), "\n")},
	}
}

func nodeText(node ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

package mdx

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdown parses the segments between components. Parsers are safe for
// concurrent use.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
)

// Parse parses a post body. A line starting with '<' and an uppercase
// letter opens a component; everything else is CommonMark. Fenced code is
// never scanned for components.
func Parse(src string) (Document, error) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	blocks, err := parseBlocks(src, 1)
	if err != nil {
		return Document{}, err
	}
	return Document{Blocks: blocks}, nil
}

// parseBlocks splits src into markdown segments and component invocations.
// firstLine is the document line number of src's first line.
func parseBlocks(src string, firstLine int) ([]Block, error) {
	var (
		blocks  []Block
		mdStart int
		fence   string
	)
	flush := func(end int) error {
		bs, err := parseMarkdown(src[mdStart:end], firstLine+strings.Count(src[:mdStart], "\n"))
		if err != nil {
			return err
		}
		blocks = append(blocks, bs...)
		return nil
	}

	for pos := 0; pos < len(src); {
		eol := lineEnd(src, pos)
		line := src[pos:eol]

		if fence != "" {
			if closesFence(line, fence) {
				fence = ""
			}
			pos = eol + 1
			continue
		}
		if f := openFence(line); f != "" {
			fence = f
			pos = eol + 1
			continue
		}

		indent := leadingSpaces(line)
		if indent > 3 || !isComponentStart(line[indent:]) {
			pos = eol + 1
			continue
		}
		if indent > 0 {
			// An indented tag would belong to the surrounding list item or
			// quote, which components cannot nest in.
			return nil, indentedComponent(line[indent:], firstLine+strings.Count(src[:pos], "\n"))
		}

		if err := flush(pos); err != nil {
			return nil, err
		}
		b, end, err := parseComponent(src, pos+indent, firstLine)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)

		// Resume after the component; trailing text on its last line is
		// treated as markdown.
		if rest := lineEnd(src, end); strings.TrimSpace(src[end:rest]) == "" {
			end = rest + 1
		}
		if end > len(src) {
			end = len(src)
		}
		pos, mdStart = end, end
	}
	if mdStart < len(src) {
		if err := flush(len(src)); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// parseComponent parses the component whose tag opens at src[at] and
// returns the block and the offset just past its closing tag.
func parseComponent(src string, at, firstLine int) (Block, int, error) {
	line := firstLine + strings.Count(src[:at], "\n")

	t, scanErr := scanTag(src, at)
	comp, ok := registry[t.name]
	if !ok {
		return nil, 0, &UnknownComponentError{Name: t.name, Line: line}
	}
	if scanErr != nil {
		return nil, 0, &ComponentError{Name: t.name, Line: line, Reason: scanErr.Error()}
	}

	end := t.end
	var children []Block
	if !t.selfClosing {
		closeStart, closeEnd, found := findClose(src, t.end, t.name)
		if !found {
			return nil, 0, &ComponentError{Name: t.name, Line: line, Reason: fmt.Sprintf("missing closing tag </%s>", t.name)}
		}
		body := src[t.end:closeStart]
		end = closeEnd

		switch {
		case comp.children:
			var err error
			children, err = parseBlocks(dedent(body), line+strings.Count(src[at:t.end], "\n"))
			if err != nil {
				return nil, 0, err
			}
		case strings.TrimSpace(body) != "":
			return nil, 0, &ComponentError{Name: t.name, Line: line, Reason: "does not accept children"}
		}
	}

	b, err := comp.build(t.attrs, children)
	if err != nil {
		return nil, 0, &ComponentError{Name: t.name, Line: line, Reason: err.Error()}
	}
	return b, end, nil
}

// findClose locates the closing tag matching a component opened before
// from, honoring nested components of the same name and skipping fenced
// code.
func findClose(src string, from int, name string) (start, end int, ok bool) {
	open, closing := "<"+name, "</"+name+">"
	depth := 1
	fence := ""
	for pos := from; pos < len(src); {
		eol := lineEnd(src, pos)
		line := src[pos:eol]
		if fence != "" {
			if closesFence(line, fence) {
				fence = ""
			}
			pos = eol + 1
			continue
		}
		if f := openFence(line); f != "" {
			fence = f
			pos = eol + 1
			continue
		}
		for i := 0; i < len(line); i++ {
			if line[i] != '<' {
				continue
			}
			rest := line[i:]
			switch {
			case strings.HasPrefix(rest, closing):
				depth--
				if depth == 0 {
					return pos + i, pos + i + len(closing), true
				}
			case strings.HasPrefix(rest, open) && len(rest) > len(open) && !isNameByte(rest[len(open)]):
				depth++
			}
		}
		pos = eol + 1
	}
	return 0, 0, false
}

func lineEnd(src string, pos int) int {
	if i := strings.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(src)
}

func leadingSpaces(line string) int {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	return n
}

func isComponentStart(s string) bool {
	return len(s) >= 2 && s[0] == '<' && s[1] >= 'A' && s[1] <= 'Z'
}

// openFence returns the fence marker if line opens a fenced code block.
func openFence(line string) string {
	if leadingSpaces(line) > 3 {
		return ""
	}
	s := strings.TrimLeft(line, " ")
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(s) && s[n] == ch {
			n++
		}
		if n >= 3 {
			return s[:n]
		}
	}
	return ""
}

func closesFence(line, fence string) bool {
	s := strings.TrimSpace(line)
	return strings.HasPrefix(s, fence) && strings.Trim(s, fence[:1]) == ""
}

// dedent removes the indentation common to every non-blank line so that
// indented component bodies are not read as code blocks.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	common := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := 0
		for n < len(l) && (l[n] == ' ' || l[n] == '\t') {
			n++
		}
		if common < 0 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return s
	}
	for i, l := range lines {
		if len(l) >= common {
			lines[i] = l[common:]
		} else {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

func parseMarkdown(src string, firstLine int) ([]Block, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	source := []byte(src)
	root := markdown.Parser().Parse(text.NewReader(source))
	c := converter{src: source, firstLine: firstLine}
	return c.blocks(root)
}

// converter turns a goldmark AST into Blocks.
type converter struct {
	src       []byte
	firstLine int
}

func (c *converter) blocks(parent ast.Node) ([]Block, error) {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		b, err := c.block(n)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *converter) block(n ast.Node) (Block, error) {
	switch n := n.(type) {
	case *ast.Heading:
		children, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		return Heading{Level: min(max(n.Level, 1), 3), Children: children}, nil

	case *ast.Paragraph:
		children, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		if len(children) == 1 {
			if img, ok := children[0].(InlineImage); ok {
				return Image(img), nil
			}
		}
		return Paragraph{Children: children}, nil

	case *ast.TextBlock:
		children, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		return Paragraph{Children: children}, nil

	case *ast.Blockquote:
		inner, err := c.blocks(n)
		if err != nil {
			return nil, err
		}
		return Blockquote{Blocks: inner}, nil

	case *ast.FencedCodeBlock:
		return CodeBlock{Language: string(n.Language(c.src)), Code: c.lines(n)}, nil

	case *ast.CodeBlock:
		return CodeBlock{Code: c.lines(n)}, nil

	case *ast.List:
		l := List{Ordered: n.IsOrdered(), Start: n.Start, Tight: n.IsTight}
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			inner, err := c.blocks(item)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, ListItem{Blocks: inner})
		}
		return l, nil

	case *ast.ThematicBreak:
		return ThematicBreak{}, nil

	case *ast.HTMLBlock:
		raw := c.lines(n)
		if n.HasClosure() {
			raw += string(n.ClosureLine.Value(c.src))
		}
		if name, ok := componentName(strings.TrimSpace(raw)); ok {
			return nil, c.strayComponent(name, n.Lines().At(0).Start)
		}
		return HTML{Raw: raw}, nil
	}
	return nil, fmt.Errorf("mdx: unsupported markdown block %s", n.Kind())
}

func (c *converter) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(c.src))
	}
	return b.String()
}

func (c *converter) lineAt(offset int) int {
	return c.firstLine + strings.Count(string(c.src[:offset]), "\n")
}

// strayComponent reports a component tag found where components cannot
// appear: inline, or a closing tag without an opening one.
func (c *converter) strayComponent(name string, offset int) error {
	line := c.lineAt(offset)
	if _, ok := registry[name]; !ok {
		return &UnknownComponentError{Name: name, Line: line}
	}
	return &ComponentError{Name: name, Line: line, Reason: "components must start on their own line"}
}

func indentedComponent(line string, lineNo int) error {
	name, _ := componentName(line)
	if _, ok := registry[name]; !ok {
		return &UnknownComponentError{Name: name, Line: lineNo}
	}
	return &ComponentError{Name: name, Line: lineNo, Reason: "components must start at column 0"}
}

// componentName reports whether raw starts with a component tag (<Name or
// </Name) and returns the name.
func componentName(raw string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimPrefix(raw, "<"), "/")
	if len(s) == len(raw) || len(s) == 0 || s[0] < 'A' || s[0] > 'Z' {
		return "", false
	}
	n := 0
	for n < len(s) && isNameByte(s[n]) {
		n++
	}
	return s[:n], true
}

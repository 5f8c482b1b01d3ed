package mdx

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"
)

func (c *converter) inlines(parent ast.Node) ([]Inline, error) {
	var out []Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Text:
			value := n.Segment.Value(c.src)
			if !n.IsRaw() {
				value = util.UnescapePunctuations(value)
				value = util.ResolveNumericReferences(value)
				value = util.ResolveEntityNames(value)
			}
			out = appendText(out, string(value))
			switch {
			case n.HardLineBreak():
				out = append(out, LineBreak{Hard: true})
			case n.SoftLineBreak():
				out = append(out, LineBreak{})
			}

		case *ast.String:
			out = appendText(out, string(n.Value))

		case *ast.Emphasis:
			children, err := c.inlines(n)
			if err != nil {
				return nil, err
			}
			out = append(out, Emphasis{Strong: n.Level >= 2, Children: children})

		case *ast.CodeSpan:
			var code strings.Builder
			for t := n.FirstChild(); t != nil; t = t.NextSibling() {
				switch t := t.(type) {
				case *ast.Text:
					seg := t.Segment.Value(c.src)
					if bytes.HasSuffix(seg, []byte("\n")) {
						code.Write(seg[:len(seg)-1])
						code.WriteByte(' ')
					} else {
						code.Write(seg)
					}
				case *ast.String:
					code.Write(t.Value)
				}
			}
			out = append(out, CodeSpan{Code: code.String()})

		case *ast.Link:
			children, err := c.inlines(n)
			if err != nil {
				return nil, err
			}
			out = append(out, Link{Href: string(n.Destination), Title: string(n.Title), Children: children})

		case *ast.Image:
			children, err := c.inlines(n)
			if err != nil {
				return nil, err
			}
			out = append(out, InlineImage{Src: string(n.Destination), Alt: PlainText(children), Title: string(n.Title)})

		case *ast.AutoLink:
			href := string(n.URL(c.src))
			if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(href), "mailto:") {
				href = "mailto:" + href
			}
			out = append(out, Link{Href: href, Children: []Inline{Text{Value: string(n.Label(c.src))}}})

		case *ast.RawHTML:
			var raw strings.Builder
			for i := 0; i < n.Segments.Len(); i++ {
				seg := n.Segments.At(i)
				raw.Write(seg.Value(c.src))
			}
			if name, ok := componentName(raw.String()); ok {
				return nil, c.strayComponent(name, n.Segments.At(0).Start)
			}
			out = append(out, RawInline{Raw: raw.String()})

		default:
			return nil, fmt.Errorf("mdx: unsupported inline %s", n.Kind())
		}
	}
	return out, nil
}

// appendText merges adjacent text nodes.
func appendText(out []Inline, s string) []Inline {
	if s == "" {
		return out
	}
	if len(out) > 0 {
		if last, ok := out[len(out)-1].(Text); ok {
			out[len(out)-1] = Text{Value: last.Value + s}
			return out
		}
	}
	return append(out, Text{Value: s})
}

func renderInlines(buf *bytes.Buffer, inlines []Inline) {
	for _, n := range inlines {
		renderInline(buf, n)
	}
}

func renderInline(buf *bytes.Buffer, n Inline) {
	switch n := n.(type) {
	case Text:
		buf.WriteString(html.EscapeString(n.Value))
	case Emphasis:
		tag := "em"
		if n.Strong {
			tag = "strong"
		}
		buf.WriteString("<" + tag + ">")
		renderInlines(buf, n.Children)
		buf.WriteString("</" + tag + ">")
	case CodeSpan:
		buf.WriteString(`<code class="inline-code">`)
		buf.WriteString(html.EscapeString(n.Code))
		buf.WriteString("</code>")
	case Link:
		href := SafeURL(n.Href)
		if href == "" {
			renderInlines(buf, n.Children)
			return
		}
		buf.WriteString(`<a href="` + href + `" class="underline underline-offset-4"`)
		if n.Title != "" {
			buf.WriteString(` title="` + html.EscapeString(n.Title) + `"`)
		}
		if isExternal(n.Href) {
			buf.WriteString(` rel="noopener noreferrer"`)
		}
		buf.WriteString(">")
		renderInlines(buf, n.Children)
		buf.WriteString("</a>")
	case InlineImage:
		src := SafeURL(n.Src)
		if src == "" {
			buf.WriteString(html.EscapeString(n.Alt))
			return
		}
		buf.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(n.Alt) + `" loading="lazy" decoding="async"`)
		if n.Title != "" {
			buf.WriteString(` title="` + html.EscapeString(n.Title) + `"`)
		}
		buf.WriteString("/>")
	case LineBreak:
		if n.Hard {
			buf.WriteString("<br/>")
		} else {
			buf.WriteString("\n")
		}
	case RawInline:
		buf.WriteString(n.Raw)
	default:
		panic(fmt.Sprintf("mdx: unhandled inline %T", n))
	}
}

package mdx

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Renderer turns Documents into HTML.
type Renderer struct {
	logger zerolog.Logger
}

// NewRenderer returns a Renderer that reports render faults to logger.
func NewRenderer(logger zerolog.Logger) *Renderer {
	return &Renderer{logger: logger.With().Str("component", "mdx").Logger()}
}

// Markdown parses and renders src with the global logger. It is the
// function views use for post bodies.
func Markdown(src string) templ.Component {
	return NewRenderer(log.Logger).RenderSource(src)
}

// RenderSource parses src and renders it. A body that fails to parse
// renders as a single placeholder.
func (r *Renderer) RenderSource(src string) templ.Component {
	doc, err := Parse(src)
	if err != nil {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			r.logger.Error().Err(err).Msg("mdx: render fault")
			_, werr := io.WriteString(w, Placeholder)
			return werr
		})
	}
	return r.Render(doc)
}

// Render renders every top-level block in isolation. A block that panics or
// fails is replaced by Placeholder and logged; the remaining blocks render
// normally.
func (r *Renderer) Render(doc Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for i, b := range doc.Blocks {
			out, err := guard(func(buf *bytes.Buffer) error {
				return renderBlock(buf, b, true)
			})
			if err != nil {
				r.logger.Error().Err(err).Int("block", i).Str("kind", kindOf(b)).Msg("mdx: render fault")
				out = []byte(Placeholder)
			}
			if _, err := w.Write(out); err != nil {
				return err
			}
		}
		return nil
	})
}

func kindOf(b Block) string {
	if b == nil {
		return "nil"
	}
	return b.Kind()
}

// blockAttr returns the data-block attribute for top-level blocks.
func blockAttr(b Block, top bool) string {
	if !top {
		return ""
	}
	return ` data-block="` + b.Kind() + `"`
}

func renderBlocks(buf *bytes.Buffer, blocks []Block) error {
	for _, b := range blocks {
		if err := renderBlock(buf, b, false); err != nil {
			return err
		}
	}
	return nil
}

// renderBlock maps every Block type to exactly one renderer.
func renderBlock(buf *bytes.Buffer, b Block, top bool) error {
	attr := ""
	if b != nil {
		attr = blockAttr(b, top)
	}
	switch b := b.(type) {
	case Heading:
		level := strconv.Itoa(b.Level)
		buf.WriteString("<h" + level + attr + ` class="heading-` + level + `">`)
		renderInlines(buf, b.Children)
		buf.WriteString("</h" + level + ">")

	case Paragraph:
		buf.WriteString("<p" + attr + ">")
		renderInlines(buf, b.Children)
		buf.WriteString("</p>")

	case Blockquote:
		buf.WriteString("<blockquote" + attr + ` class="border-l-4 pl-6 italic">`)
		if err := renderBlocks(buf, b.Blocks); err != nil {
			return err
		}
		buf.WriteString("</blockquote>")

	case CodeBlock:
		if b.Language != "" {
			lang := html.EscapeString(b.Language)
			buf.WriteString(`<pre` + attr + ` class="code-block"><code class="language-` + lang + `">`)
		} else {
			buf.WriteString(`<pre` + attr + ` class="code-block"><code>`)
		}
		buf.WriteString(html.EscapeString(b.Code))
		buf.WriteString("</code></pre>")

	case List:
		return renderList(buf, b, attr)

	case ThematicBreak:
		buf.WriteString("<hr" + attr + "/>")

	case Image:
		src := SafeURL(b.Src)
		if src == "" {
			return fmt.Errorf("image with disallowed source %q", b.Src)
		}
		buf.WriteString(`<figure` + attr + ` class="post-image"><img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" loading="lazy" decoding="async"/>`)
		if b.Title != "" {
			buf.WriteString("<figcaption>" + html.EscapeString(b.Title) + "</figcaption>")
		}
		buf.WriteString("</figure>")

	case HTML:
		if top {
			buf.WriteString("<div" + attr + ">" + b.Raw + "</div>")
		} else {
			buf.WriteString(b.Raw)
		}

	case BleedImage:
		return renderBleedImage(buf, b, attr)
	case CloudImage:
		return renderCloudImage(buf, b, attr)
	case StatCard:
		buf.WriteString(`<div` + attr + ` class="stat-card">`)
		buf.WriteString(`<span class="stat-number">` + html.EscapeString(b.Number) + `</span>`)
		buf.WriteString(`<span class="stat-label">` + html.EscapeString(b.Label) + `</span>`)
		buf.WriteString(`</div>`)
	case BarChart:
		renderBarChart(buf, b, attr)

	case PullQuote:
		buf.WriteString(`<div` + attr + ` class="pull-quote"><blockquote>`)
		if err := renderBlocks(buf, b.Blocks); err != nil {
			return err
		}
		buf.WriteString(`</blockquote></div>`)

	case Callout:
		buf.WriteString(`<aside` + attr + ` class="callout callout-` + html.EscapeString(string(b.Type)) + `" role="note"><div>`)
		if b.Title != "" {
			buf.WriteString(`<h4 class="callout-title">` + html.EscapeString(b.Title) + `</h4>`)
		}
		buf.WriteString(`<div class="callout-body">`)
		if err := renderBlocks(buf, b.Blocks); err != nil {
			return err
		}
		buf.WriteString(`</div></div></aside>`)

	default:
		return fmt.Errorf("no renderer for block %T", b)
	}
	return nil
}

func renderList(buf *bytes.Buffer, l List, attr string) error {
	tag := "ul"
	if l.Ordered {
		tag = "ol"
	}
	buf.WriteString("<" + tag + attr)
	if l.Ordered && l.Start != 1 {
		buf.WriteString(` start="` + strconv.Itoa(l.Start) + `"`)
	}
	buf.WriteString(">")
	for _, item := range l.Items {
		buf.WriteString("<li>")
		for _, b := range item.Blocks {
			if p, ok := b.(Paragraph); ok && l.Tight {
				renderInlines(buf, p.Children)
				continue
			}
			if err := renderBlock(buf, b, false); err != nil {
				return err
			}
		}
		buf.WriteString("</li>")
	}
	buf.WriteString("</" + tag + ">")
	return nil
}

func renderBleedImage(buf *bytes.Buffer, b BleedImage, attr string) error {
	src := SafeURL(b.Src)
	if src == "" {
		return fmt.Errorf("bleed image with disallowed source %q", b.Src)
	}
	loading := `loading="lazy"`
	if b.Priority {
		loading = `fetchpriority="high"`
	}
	buf.WriteString(`<figure` + attr + ` class="bleed-image">`)
	buf.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" ` + loading + ` decoding="async" sizes="(max-width: 1024px) 100vw, 1024px"/>`)
	if b.Caption != "" {
		buf.WriteString(`<figcaption>` + html.EscapeString(b.Caption) + `</figcaption>`)
	}
	buf.WriteString(`</figure>`)
	return nil
}

func renderCloudImage(buf *bytes.Buffer, b CloudImage, attr string) error {
	src := SafeURL(b.Src)
	if src == "" {
		return fmt.Errorf("cloud image with disallowed source %q", b.Src)
	}
	buf.WriteString(`<figure` + attr + ` class="cloud-image">`)
	buf.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" loading="lazy" decoding="async"/>`)
	if b.Caption != "" {
		buf.WriteString(`<figcaption>` + html.EscapeString(b.Caption) + `</figcaption>`)
	}
	buf.WriteString(`</figure>`)
	return nil
}

func renderBarChart(buf *bytes.Buffer, c BarChart, attr string) {
	buf.WriteString(`<div` + attr + ` class="bar-chart">`)
	if c.Title != "" {
		buf.WriteString(`<h4 class="bar-chart-title">` + html.EscapeString(c.Title) + `</h4>`)
	}
	buf.WriteString(`<div class="bar-chart-rows">`)
	for _, bar := range LayoutBars(c.Data, c.MaxValue) {
		buf.WriteString(`<div class="bar-row">`)
		buf.WriteString(`<div class="bar-meta"><span>` + html.EscapeString(bar.Label) + `</span><span>` + formatNumber(bar.Value) + `</span></div>`)
		style := "width: " + strconv.FormatFloat(barWidth(bar.Percent), 'f', -1, 64) + "%"
		if bar.Color != "" {
			style += "; background-color: " + bar.Color
		}
		buf.WriteString(`<div class="bar-track"><div class="bar-fill" style="` + html.EscapeString(style) + `"></div></div>`)
		buf.WriteString(`</div>`)
	}
	buf.WriteString(`</div></div>`)
}

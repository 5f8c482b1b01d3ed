// Package mdx parses post bodies written in markdown with embedded
// components and renders them as HTML through templ components.
//
// A body is parsed into a Document: a flat list of Blocks forming a closed
// tagged union. Every Block type has exactly one renderer; Render isolates
// each top-level block so a fault in one never takes down the page.
package mdx

// Document is a parsed post body.
type Document struct {
	Blocks []Block
}

// Block is a block-level node. The set of implementations is closed.
type Block interface {
	// Kind names the block type; it is emitted as the data-block attribute
	// of top-level blocks.
	Kind() string
	isBlock()
}

// Inline is an inline node inside headings, paragraphs and links.
type Inline interface {
	isInline()
}

// Markdown blocks.
type (
	Heading struct {
		Level    int // 1..3; deeper headings are clamped to 3
		Children []Inline
	}

	Paragraph struct {
		Children []Inline
	}

	Blockquote struct {
		Blocks []Block
	}

	CodeBlock struct {
		Language string
		Code     string
	}

	List struct {
		Ordered bool
		Start   int
		Tight   bool
		Items   []ListItem
	}

	ThematicBreak struct{}

	// Image is a paragraph whose only content is an image.
	Image struct {
		Src   string
		Alt   string
		Title string
	}

	// HTML is a raw lowercase HTML block written by a trusted author.
	HTML struct {
		Raw string
	}
)

// ListItem is one entry of a List.
type ListItem struct {
	Blocks []Block
}

// Component blocks.
type (
	BleedImage struct {
		Src      string
		Alt      string
		Caption  string
		Priority bool
	}

	CloudImage struct {
		Src     string
		Alt     string
		Caption string
	}

	StatCard struct {
		Number string
		Label  string
	}

	BarChart struct {
		Title    string
		Data     []Bar
		MaxValue *float64
	}

	PullQuote struct {
		Blocks []Block
	}

	Callout struct {
		Type   CalloutType
		Title  string
		Blocks []Block
	}
)

// Bar is one data point of a BarChart.
type Bar struct {
	Label string
	Value float64
	Color string
}

// CalloutType selects the tone of a Callout.
type CalloutType string

const (
	CalloutInfo    CalloutType = "info"
	CalloutWarning CalloutType = "warning"
	CalloutSuccess CalloutType = "success"
	CalloutDanger  CalloutType = "danger"
)

// Inline nodes.
type (
	Text struct {
		Value string
	}

	// Emphasis is <em>, or <strong> when Strong is set.
	Emphasis struct {
		Strong   bool
		Children []Inline
	}

	CodeSpan struct {
		Code string
	}

	Link struct {
		Href     string
		Title    string
		Children []Inline
	}

	InlineImage struct {
		Src   string
		Alt   string
		Title string
	}

	// LineBreak is a hard break (<br/>) or a soft break rendered as a newline.
	LineBreak struct {
		Hard bool
	}

	RawInline struct {
		Raw string
	}
)

func (Heading) Kind() string       { return "heading" }
func (Paragraph) Kind() string     { return "paragraph" }
func (Blockquote) Kind() string    { return "blockquote" }
func (CodeBlock) Kind() string     { return "code" }
func (List) Kind() string          { return "list" }
func (ThematicBreak) Kind() string { return "thematic-break" }
func (Image) Kind() string         { return "image" }
func (HTML) Kind() string          { return "html" }
func (BleedImage) Kind() string    { return "bleed-image" }
func (CloudImage) Kind() string    { return "cloud-image" }
func (StatCard) Kind() string      { return "stat-card" }
func (BarChart) Kind() string      { return "bar-chart" }
func (PullQuote) Kind() string     { return "pull-quote" }
func (Callout) Kind() string       { return "callout" }

func (Heading) isBlock()       {}
func (Paragraph) isBlock()     {}
func (Blockquote) isBlock()    {}
func (CodeBlock) isBlock()     {}
func (List) isBlock()          {}
func (ThematicBreak) isBlock() {}
func (Image) isBlock()         {}
func (HTML) isBlock()          {}
func (BleedImage) isBlock()    {}
func (CloudImage) isBlock()    {}
func (StatCard) isBlock()      {}
func (BarChart) isBlock()      {}
func (PullQuote) isBlock()     {}
func (Callout) isBlock()       {}

func (Text) isInline()        {}
func (Emphasis) isInline()    {}
func (CodeSpan) isInline()    {}
func (Link) isInline()        {}
func (InlineImage) isInline() {}
func (LineBreak) isInline()   {}
func (RawInline) isInline()   {}

// PlainText returns the text content of inlines without markup.
func PlainText(inlines []Inline) string {
	var out []byte
	var walk func([]Inline)
	walk = func(in []Inline) {
		for _, n := range in {
			switch n := n.(type) {
			case Text:
				out = append(out, n.Value...)
			case Emphasis:
				walk(n.Children)
			case CodeSpan:
				out = append(out, n.Code...)
			case Link:
				walk(n.Children)
			case InlineImage:
				out = append(out, n.Alt...)
			case LineBreak:
				out = append(out, ' ')
			}
		}
	}
	walk(inlines)
	return string(out)
}

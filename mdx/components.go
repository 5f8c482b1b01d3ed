package mdx

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrUnknownComponent matches parse failures caused by a component name
	// that is not registered.
	ErrUnknownComponent = errors.New("mdx: unknown component")
	// ErrInvalidComponent matches parse failures caused by malformed
	// component syntax or attributes.
	ErrInvalidComponent = errors.New("mdx: invalid component")
)

// UnknownComponentError reports a component name missing from the registry.
type UnknownComponentError struct {
	Name string
	Line int
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("mdx: unknown component <%s> on line %d", e.Name, e.Line)
}

func (e *UnknownComponentError) Is(target error) bool { return target == ErrUnknownComponent }

// ComponentError reports a registered component used incorrectly.
type ComponentError struct {
	Name   string
	Line   int
	Reason string
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("mdx: <%s> on line %d: %s", e.Name, e.Line, e.Reason)
}

func (e *ComponentError) Is(target error) bool { return target == ErrInvalidComponent }

// component describes one registered component.
type component struct {
	children bool
	build    func(a attrs, children []Block) (Block, error)
}

// registry is the closed set of components a post body may use.
var registry = map[string]component{
	"BleedImage": {build: buildBleedImage},
	"CloudImage": {build: buildCloudImage},
	"StatCard":   {build: buildStatCard},
	"BarChart":   {build: buildBarChart},
	"PullQuote":  {children: true, build: buildPullQuote},
	"Callout":    {children: true, build: buildCallout},
}

// Components returns the registered component names in sorted order.
func Components() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildBleedImage(a attrs, _ []Block) (Block, error) {
	src, err := a.required("src")
	if err != nil {
		return nil, err
	}
	alt, err := a.required("alt")
	if err != nil {
		return nil, err
	}
	caption, err := a.optional("caption")
	if err != nil {
		return nil, err
	}
	priority, err := a.flag("priority")
	if err != nil {
		return nil, err
	}
	return BleedImage{Src: src, Alt: alt, Caption: caption, Priority: priority}, nil
}

func buildCloudImage(a attrs, _ []Block) (Block, error) {
	src, err := a.required("src")
	if err != nil {
		return nil, err
	}
	alt, err := a.required("alt")
	if err != nil {
		return nil, err
	}
	caption, err := a.optional("caption")
	if err != nil {
		return nil, err
	}
	return CloudImage{Src: src, Alt: alt, Caption: caption}, nil
}

func buildStatCard(a attrs, _ []Block) (Block, error) {
	number, err := a.required("number")
	if err != nil {
		return nil, err
	}
	label, err := a.required("label")
	if err != nil {
		return nil, err
	}
	return StatCard{Number: number, Label: label}, nil
}

func buildBarChart(a attrs, _ []Block) (Block, error) {
	raw, ok := a["data"]
	if !ok {
		return nil, errors.New(`missing required attribute "data"`)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New(`"data" must be an array`)
	}

	chart := BarChart{Data: make([]Bar, 0, len(items))}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("data[%d] must be an object", i)
		}
		label, ok := obj["label"].(string)
		if !ok {
			return nil, fmt.Errorf("data[%d].label must be a string", i)
		}
		value, ok := toNumber(obj["value"])
		if !ok {
			return nil, fmt.Errorf("data[%d].value must be a number", i)
		}
		bar := Bar{Label: label, Value: value}
		if c, ok := obj["color"].(string); ok {
			bar.Color = c
		}
		chart.Data = append(chart.Data, bar)
	}

	title, err := a.optional("title")
	if err != nil {
		return nil, err
	}
	chart.Title = title

	if v, ok := a["maxValue"]; ok && v != nil {
		mv, ok := toNumber(v)
		if !ok {
			return nil, errors.New(`"maxValue" must be a number`)
		}
		chart.MaxValue = &mv
	}
	return chart, nil
}

func buildPullQuote(_ attrs, children []Block) (Block, error) {
	return PullQuote{Blocks: children}, nil
}

func buildCallout(a attrs, children []Block) (Block, error) {
	typ, err := a.optional("type")
	if err != nil {
		return nil, err
	}
	c := Callout{Type: CalloutInfo, Blocks: children}
	switch CalloutType(typ) {
	case "":
	case CalloutInfo, CalloutWarning, CalloutSuccess, CalloutDanger:
		c.Type = CalloutType(typ)
	default:
		return nil, fmt.Errorf("unknown callout type %q", typ)
	}
	if c.Title, err = a.optional("title"); err != nil {
		return nil, err
	}
	return c, nil
}

func (a attrs) required(name string) (string, error) {
	s, err := a.optional(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("missing required attribute %q", name)
	}
	return s, nil
}

// optional returns a string attribute. Numbers are accepted and formatted,
// so number={42} and number="42" are equivalent.
func (a attrs) optional(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", nil
	}
	switch v := v.(type) {
	case string:
		return v, nil
	case float64:
		return formatNumber(v), nil
	}
	return "", fmt.Errorf("attribute %q must be a string", name)
}

func (a attrs) flag(name string) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return false, nil
	}
	switch v := v.(type) {
	case bool:
		return v, nil
	case string:
		return v == "true", nil
	}
	return false, fmt.Errorf("attribute %q must be a boolean", name)
}

func toNumber(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

package tdl

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

const (
	TaskTag     = "TASK"
	CategoryTag = "CATEGORY"
	CommentsTag = "COMMENTS"
)

// FieldKeys lists the upper-case spelling of every task field the format
// defines. Lookups also accept the lower-case spelling.
var FieldKeys = []string{
	"TITLE", "STATUS", "PRIORITY", "PERCENTDONE",
	"STARTDATE", "DUEDATE", "CREATIONDATE", "LASTMOD",
}

// Kind tags which representation a task node's fields came from.
type Kind int

const (
	KindAttributes Kind = iota + 1
	KindElements
)

func (k Kind) String() string {
	switch k {
	case KindAttributes:
		return "attributes"
	case KindElements:
		return "elements"
	default:
		return "unknown"
	}
}

// Precedence picks the representation when a node carries both attribute
// fields and field child elements.
type Precedence string

const (
	PreferAttributes Precedence = "attributes"
	PreferElements   Precedence = "elements"
)

// ParsePrecedence validates a configured precedence value.
func ParsePrecedence(s string) (Precedence, error) {
	switch p := Precedence(strings.ToLower(strings.TrimSpace(s))); p {
	case PreferAttributes, PreferElements:
		return p, nil
	case "":
		return PreferAttributes, nil
	default:
		return "", fmt.Errorf("tdl: unknown precedence %q", s)
	}
}

// TaskSource is the single authoritative field collection of one node.
type TaskSource struct {
	Kind   Kind
	Fields map[string]string
}

// Lookup returns the first present key in order.
func (s TaskSource) Lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := s.Fields[k]; ok {
			return v, true
		}
	}
	return "", false
}

// TaskNode is one TASK element flattened for normalization.
type TaskNode struct {
	// Index is the zero-based position in document order.
	Index      int
	Source     TaskSource
	Comments   *string
	Categories []string

	el *etree.Element
}

// Raw serializes the source element for diagnostics.
func (n TaskNode) Raw() string {
	if n.el == nil {
		return fmt.Sprintf("%s %v", n.Source.Kind, n.Source.Fields)
	}
	doc := etree.NewDocument()
	doc.SetRoot(n.el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return "<" + n.el.Tag + ">"
	}
	return s
}

// Tasks returns every TASK element at any depth, in document order.
func (t *Tree) Tasks(p Precedence) []TaskNode {
	var nodes []TaskNode
	walk(t.Root(), func(el *etree.Element) {
		if el.Tag == TaskTag {
			nodes = append(nodes, newTaskNode(len(nodes), el, p))
		}
	})
	return nodes
}

// walk visits el and its descendants depth-first, parents before children.
func walk(el *etree.Element, visit func(*etree.Element)) {
	if el == nil {
		return
	}
	visit(el)
	for _, child := range el.ChildElements() {
		walk(child, visit)
	}
}

func newTaskNode(index int, el *etree.Element, p Precedence) TaskNode {
	return TaskNode{
		Index:      index,
		Source:     selectSource(el, p),
		Comments:   comments(el),
		Categories: categories(el),
		el:         el,
	}
}

func selectSource(el *etree.Element, p Precedence) TaskSource {
	attrs := attributeFields(el)
	elems := elementFields(el)
	hasAttrs := len(attrs) > 0
	hasElems := containsFieldKey(elems)
	switch {
	case hasAttrs && hasElems && p == PreferElements:
		return TaskSource{Kind: KindElements, Fields: elems}
	case hasAttrs:
		return TaskSource{Kind: KindAttributes, Fields: attrs}
	default:
		return TaskSource{Kind: KindElements, Fields: elems}
	}
}

func attributeFields(el *etree.Element) map[string]string {
	fields := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || a.Key == "xmlns" {
			continue
		}
		if _, ok := fields[a.Key]; !ok {
			fields[a.Key] = a.Value
		}
	}
	return fields
}

func elementFields(el *etree.Element) map[string]string {
	fields := make(map[string]string)
	for _, child := range el.ChildElements() {
		switch strings.ToUpper(child.Tag) {
		case TaskTag, CategoryTag, CommentsTag:
			continue
		}
		if _, ok := fields[child.Tag]; !ok {
			fields[child.Tag] = child.Text()
		}
	}
	return fields
}

func containsFieldKey(fields map[string]string) bool {
	for _, k := range FieldKeys {
		if _, ok := fields[k]; ok {
			return true
		}
		if _, ok := fields[strings.ToLower(k)]; ok {
			return true
		}
	}
	return false
}

func comments(el *etree.Element) *string {
	c := el.SelectElement(CommentsTag)
	if c == nil {
		c = el.SelectElement(strings.ToLower(CommentsTag))
	}
	if c == nil {
		return nil
	}
	text := c.Text()
	return &text
}

// categories returns the raw text of every category child, untrimmed and
// including empty names.
func categories(el *etree.Element) []string {
	var names []string
	for _, child := range el.ChildElements() {
		if child.Tag != CategoryTag && child.Tag != strings.ToLower(CategoryTag) {
			continue
		}
		names = append(names, child.Text())
	}
	return names
}

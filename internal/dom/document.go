// Package dom is a small headless page model: an HTML tree that supports the
// handful of mutations and subtree observers embedded widgets rely on.
package dom

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrDetached is returned when mutating an element that is no longer part of the document.
var ErrDetached = errors.New("dom: element is detached")

const emptyPage = `<!DOCTYPE html><html><head></head><body></body></html>`

// Document is a mutable HTML tree safe for concurrent use.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	observers []*observer
}

// Element is a handle to a node inside a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

// NewDocument returns an empty page with head and body.
func NewDocument() *Document {
	d, err := ParseString(emptyPage)
	if err != nil {
		// the literal above always parses
		panic(err)
	}
	return d
}

// Parse reads a full HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// HTML serialises the current tree.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ByID finds the element carrying the id attribute.
func (d *Document) ByID(id string) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findByID(d.root, id)
	if n == nil {
		return Element{}, false
	}
	return Element{doc: d, n: n}, true
}

// Query runs a CSS selector against the whole document.
func (d *Document) Query(selector string) []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(queryNodes(d.root, selector))
}

// Head returns the <head> element.
func (d *Document) Head() (Element, bool) { return d.first(atom.Head) }

// Body returns the <body> element.
func (d *Document) Body() (Element, bool) { return d.first(atom.Body) }

func (d *Document) first(a atom.Atom) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return Element{}, false
	}
	return Element{doc: d, n: found}, true
}

// Contains reports whether el is still attached to this document.
func (d *Document) Contains(el Element) bool {
	if el.n == nil || el.doc != d {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return attached(d.root, el.n)
}

// SetInnerHTML replaces the children of el with the parsed markup.
func (d *Document) SetInnerHTML(el Element, markup string) error {
	d.mu.Lock()
	if !d.attachedLocked(el) {
		d.mu.Unlock()
		return ErrDetached
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), el.n)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	removed := detachChildren(el.n)
	for _, n := range nodes {
		el.n.AppendChild(n)
	}
	rec := MutationRecord{Kind: ChildList, Target: el, Removed: d.wrap(removed), Added: d.wrap(nodes)}
	d.notifyLocked(rec)
	return nil
}

// Clear removes every child of el.
func (d *Document) Clear(el Element) {
	d.mu.Lock()
	if !d.attachedLocked(el) || el.n.FirstChild == nil {
		d.mu.Unlock()
		return
	}
	removed := detachChildren(el.n)
	d.notifyLocked(MutationRecord{Kind: ChildList, Target: el, Removed: d.wrap(removed)})
}

// AppendElement creates a child element with the given attributes.
func (d *Document) AppendElement(parent Element, tag string, attrs map[string]string) (Element, error) {
	d.mu.Lock()
	if !d.attachedLocked(parent) {
		d.mu.Unlock()
		return Element{}, ErrDetached
	}
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for k, v := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: v})
	}
	parent.n.AppendChild(n)
	child := Element{doc: d, n: n}
	d.notifyLocked(MutationRecord{Kind: ChildList, Target: parent, Added: []Element{child}})
	return child, nil
}

// Remove detaches el from its parent.
func (d *Document) Remove(el Element) {
	d.mu.Lock()
	if !d.attachedLocked(el) || el.n.Parent == nil {
		d.mu.Unlock()
		return
	}
	parent := el.n.Parent
	parent.RemoveChild(el.n)
	d.notifyLocked(MutationRecord{Kind: ChildList, Target: Element{doc: d, n: parent}, Removed: []Element{el}})
}

// SetAttr sets or replaces an attribute.
func (d *Document) SetAttr(el Element, key, val string) {
	d.mu.Lock()
	if !d.attachedLocked(el) {
		d.mu.Unlock()
		return
	}
	setAttr(el.n, key, val)
	d.notifyLocked(MutationRecord{Kind: Attributes, Target: el, Attribute: key})
}

// AddClass appends a class token when missing.
func (d *Document) AddClass(el Element, class string) {
	d.mu.Lock()
	if !d.attachedLocked(el) {
		d.mu.Unlock()
		return
	}
	classes := strings.Fields(attr(el.n, "class"))
	for _, c := range classes {
		if c == class {
			d.mu.Unlock()
			return
		}
	}
	setAttr(el.n, "class", strings.Join(append(classes, class), " "))
	d.notifyLocked(MutationRecord{Kind: Attributes, Target: el, Attribute: "class"})
}

// SetStyle sets one inline style property, e.g. SetStyle(form, "display", "none").
func (d *Document) SetStyle(el Element, prop, value string) {
	d.mu.Lock()
	if !d.attachedLocked(el) {
		d.mu.Unlock()
		return
	}
	decls := parseStyle(attr(el.n, "style"))
	prop = strings.ToLower(strings.TrimSpace(prop))
	replaced := false
	for i := range decls {
		if decls[i][0] == prop {
			decls[i][1] = value
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, [2]string{prop, value})
	}
	parts := make([]string, 0, len(decls))
	for _, kv := range decls {
		parts = append(parts, kv[0]+": "+kv[1])
	}
	setAttr(el.n, "style", strings.Join(parts, "; "))
	d.notifyLocked(MutationRecord{Kind: Attributes, Target: el, Attribute: "style"})
}

// SetText replaces the children of el with a single text node.
func (d *Document) SetText(el Element, text string) {
	d.mu.Lock()
	if !d.attachedLocked(el) {
		d.mu.Unlock()
		return
	}
	removed := detachChildren(el.n)
	t := &html.Node{Type: html.TextNode, Data: text}
	el.n.AppendChild(t)
	d.notifyLocked(MutationRecord{Kind: CharacterData, Target: el, Removed: d.wrap(removed)})
}

func (d *Document) attachedLocked(el Element) bool {
	return el.n != nil && el.doc == d && attached(d.root, el.n)
}

func (d *Document) wrap(nodes []*html.Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		out = append(out, Element{doc: d, n: n})
	}
	return out
}

// ID returns the id attribute.
func (e Element) ID() string {
	v, _ := e.Attr("id")
	return v
}

// Tag returns the lower-case tag name.
func (e Element) Tag() string {
	if e.n == nil {
		return ""
	}
	return e.n.Data
}

// Attr returns an attribute value.
func (e Element) Attr(key string) (string, bool) {
	if e.n == nil {
		return "", false
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, a := range e.n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether the class attribute contains class.
func (e Element) HasClass(class string) bool {
	v, _ := e.Attr("class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Text returns the concatenated text content of the subtree.
func (e Element) Text() string {
	if e.n == nil {
		return ""
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return textOf(e.n)
}

// InnerHTML serialises the children of e.
func (e Element) InnerHTML() string {
	if e.n == nil {
		return ""
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Find runs a CSS selector against the descendants of e.
func (e Element) Find(selector string) []Element {
	if e.n == nil {
		return nil
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.wrap(queryNodes(e.n, selector))
}

// Hidden reports whether e or any ancestor up to and including within is
// hidden by display:none or the hidden attribute. A zero within checks e only.
func (e Element) Hidden(within Element) bool {
	if e.n == nil {
		return true
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for n := e.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenNode(n) {
			return true
		}
		if within.n == nil || n == within.n {
			break
		}
	}
	return false
}

// Same reports whether both handles point at the same node.
func (e Element) Same(other Element) bool { return e.n != nil && e.n == other.n }

// Valid reports whether the handle points at a node.
func (e Element) Valid() bool { return e.n != nil }

func queryNodes(root *html.Node, selector string) []*html.Node {
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attached(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

func detachChildren(n *html.Node) []*html.Node {
	var removed []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	return removed
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hiddenNode(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" {
			return true
		}
	}
	for _, kv := range parseStyle(attr(n, "style")) {
		if kv[0] == "display" && strings.EqualFold(strings.TrimSpace(strings.TrimSuffix(kv[1], "!important")), "none") {
			return true
		}
	}
	return false
}

func parseStyle(style string) [][2]string {
	var out [][2]string
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out = append(out, [2]string{k, strings.TrimSpace(v)})
	}
	return out
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

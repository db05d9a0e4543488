// Package htmldom is a page.Document over a parsed HTML tree. The server
// keeps one as the live dashboard page and serves snapshots of it.
package htmldom

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/breatheroute/aqdash/internal/page"
)

// WidgetAttr marks elements the Toolkit has enhanced.
const WidgetAttr = "data-aq-widget"

// Document is a concurrency-safe page.Document.
//
// Mutations are either text changes, which Since reports as TextPatches, or
// structural changes, after which only a full rendering brings an older
// copy up to date.
type Document struct {
	mu        sync.Mutex
	doc       *goquery.Document
	version   uint64
	structure uint64
	texts     map[*html.Node]uint64

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{
		doc:   doc,
		texts: make(map[*html.Node]uint64),
		subs:  make(map[chan struct{}]struct{}),
	}, nil
}

// ParseString parses markup.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// QuerySelector implements page.Document.
func (d *Document) QuerySelector(selector string) (page.Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return &element{d: d, sel: sel}, true
}

// QuerySelectorAll implements page.Document.
func (d *Document) QuerySelectorAll(selector string) []page.Element {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []page.Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{d: d, sel: s})
	})
	return out
}

// HTML renders the current document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.render()
}

func (d *Document) render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root()); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// TextPatch sets the text of one element. Path lists element-child indexes
// starting below the <html> element.
type TextPatch struct {
	Path []int  `json:"path"`
	Text string `json:"text"`
}

// Delta brings a copy of the document up to Version. HTML is set when the
// copy needs a full rendering; otherwise Texts lists the changed elements.
type Delta struct {
	Version uint64      `json:"version"`
	HTML    string      `json:"html,omitempty"`
	Texts   []TextPatch `json:"texts,omitempty"`
}

// Full returns the whole document at the current version.
func (d *Document) Full() (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.full()
}

func (d *Document) full() (Delta, error) {
	markup, err := d.render()
	if err != nil {
		return Delta{}, err
	}
	return Delta{Version: d.version, HTML: markup}, nil
}

// Since returns what changed after version. A structural change after
// version yields a full rendering.
func (d *Document) Since(version uint64) (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if version < d.structure || version > d.version {
		return d.full()
	}

	delta := Delta{Version: d.version}
	for n, changed := range d.texts {
		if changed <= version {
			continue
		}
		path, ok := d.elementPath(n)
		if !ok {
			continue
		}
		delta.Texts = append(delta.Texts, TextPatch{Path: path, Text: nodeText(n)})
	}
	slices.SortFunc(delta.Texts, func(a, b TextPatch) int {
		return slices.Compare(a.Path, b.Path)
	})
	return delta, nil
}

// elementPath locates n below the <html> element. It fails for detached nodes.
func (d *Document) elementPath(n *html.Node) ([]int, bool) {
	var path []int
	for ; n != nil; n = n.Parent {
		if n.Parent == d.root() {
			slices.Reverse(path)
			return path, n.Type == html.ElementNode
		}
		i := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			if s.Type == html.ElementNode {
				i++
			}
		}
		path = append(path, i)
	}
	return nil, false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Version increases on every mutation.
func (d *Document) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Subscribe returns a channel that receives a value after mutations.
// Bursts of mutations are coalesced. Call cancel to unsubscribe.
func (d *Document) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	d.subMu.Lock()
	d.subs[ch] = struct{}{}
	d.subMu.Unlock()

	return ch, func() {
		d.subMu.Lock()
		delete(d.subs, ch)
		d.subMu.Unlock()
	}
}

// mutate runs a structural change f under the document lock and then
// notifies subscribers.
func (d *Document) mutate(f func()) {
	d.mu.Lock()
	f()
	d.version++
	d.structure = d.version
	clear(d.texts)
	d.mu.Unlock()
	d.notify()
}

// mutateText replaces the text of n.
func (d *Document) mutateText(n *html.Node, f func()) {
	d.mu.Lock()
	f()
	d.version++
	d.texts[n] = d.version
	d.mu.Unlock()
	d.notify()
}

func (d *Document) notify() {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for ch := range d.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (d *Document) root() *html.Node {
	return d.doc.Nodes[0]
}

type element struct {
	d   *Document
	sel *goquery.Selection
}

func (e *element) node() *html.Node {
	return e.sel.Nodes[0]
}

func (e *element) Text() string {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.sel.Text()
}

func (e *element) SetText(text string) {
	e.d.mutateText(e.node(), func() { e.sel.SetText(text) })
}

func (e *element) SetHTML(markup string) {
	e.d.mutate(func() { e.sel.SetHtml(markup) })
}

func (e *element) PrependHTML(markup string) (page.Element, bool) {
	var inserted *html.Node
	e.d.mutate(func() {
		n := e.node()
		previousFirst := n.FirstChild
		e.sel.PrependHtml(markup)
		for c := n.FirstChild; c != nil && c != previousFirst; c = c.NextSibling {
			if c.Type == html.ElementNode {
				inserted = c
				break
			}
		}
	})
	if inserted == nil {
		return nil, false
	}
	return &element{d: e.d, sel: e.sel.FindNodes(inserted)}, true
}

func (e *element) Remove() {
	if !e.Attached() {
		return
	}
	e.d.mutate(func() { e.sel.Remove() })
}

func (e *element) Attached() bool {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()

	root := e.d.root()
	for n := e.node(); n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// Toolkit marks enhanced triggers so the browser-side widget library can
// hydrate them.
type Toolkit struct{}

// Tooltip implements page.Toolkit.
func (Toolkit) Tooltip(el page.Element) { markWidget(el, "tooltip") }

// Popover implements page.Toolkit.
func (Toolkit) Popover(el page.Element) { markWidget(el, "popover") }

func markWidget(el page.Element, kind string) {
	e, ok := el.(*element)
	if !ok {
		return
	}
	e.d.mutate(func() { e.sel.SetAttr(WidgetAttr, kind) })
}

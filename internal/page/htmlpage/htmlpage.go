// Package htmlpage implements the page capability over statically parsed
// HTML. It backs unit tests and offline form inspection: markup goes in,
// the same Page interface the live browser adapter exposes comes out.
// Writes mutate an in-memory value map, and submit signals are delivered
// through FireSubmit, standing in for a human pressing the button.
package htmlpage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"signupguard/internal/page"
)

// Page is a parsed HTML document.
type Page struct {
	url   string
	doc   *html.Node
	forms []*Form
}

// Parse builds a Page from markup.
func Parse(url, markup string) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	p := &Page{url: url, doc: doc}
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "form" {
			p.forms = append(p.forms, newForm(p, n))
		}
	})
	return p, nil
}

// MustParse is Parse for tests and fixtures with known-good markup.
func MustParse(url, markup string) *Page {
	p, err := Parse(url, markup)
	if err != nil {
		panic(err)
	}
	return p
}

// URL implements page.Page.
func (p *Page) URL() string { return p.url }

// Forms implements page.Page.
func (p *Page) Forms(ctx context.Context) ([]page.FormHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]page.FormHandle, len(p.forms))
	for i, f := range p.forms {
		out[i] = f
	}
	return out, nil
}

// Form returns the concrete form at index i, for driving tests
// (FireSubmit, value assertions).
func (p *Page) Form(i int) *Form {
	if i < 0 || i >= len(p.forms) {
		return nil
	}
	return p.forms[i]
}

// Form is one form element.
type Form struct {
	page *Page
	node *html.Node

	mu                  sync.Mutex
	fields              []*Field
	subs                []*subscription
	programmaticSubmits int
}

func newForm(p *Page, n *html.Node) *Form {
	f := &Form{page: p, node: n}
	walk(n, func(c *html.Node) {
		if c.Type != html.ElementNode {
			return
		}
		switch c.Data {
		case "input", "select", "textarea":
			if c.Data == "input" {
				t := strings.ToLower(attr(c, "type"))
				if t == "submit" || t == "button" || t == "image" || t == "reset" {
					return
				}
			}
			f.fields = append(f.fields, &Field{form: f, node: c})
		}
	})
	return f
}

// VisibleText implements page.FormHandle.
func (f *Form) VisibleText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	walk(f.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
	})
	return strings.Join(strings.Fields(b.String()), " "), nil
}

// ActionPath implements page.FormHandle.
func (f *Form) ActionPath(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return attr(f.node, "action"), nil
}

// Fields implements page.FormHandle.
func (f *Form) Fields(ctx context.Context) ([]page.FieldHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]page.FieldHandle, len(f.fields))
	for i, fd := range f.fields {
		out[i] = fd
	}
	return out, nil
}

// Buttons implements page.FormHandle.
func (f *Form) Buttons(ctx context.Context) ([]page.ButtonInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []page.ButtonInfo
	walk(f.node, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "button":
			out = append(out, page.ButtonInfo{
				Text: textContent(n),
				Type: strings.ToLower(attr(n, "type")),
				Name: attr(n, "name"),
			})
		case "input":
			t := strings.ToLower(attr(n, "type"))
			if t == "submit" || t == "button" {
				out = append(out, page.ButtonInfo{
					Text: attr(n, "value"),
					Type: t,
					Name: attr(n, "name"),
				})
			}
		}
	})
	return out, nil
}

// SubscribeSubmit implements page.FormHandle.
func (f *Form) SubscribeSubmit(ctx context.Context) (page.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &subscription{form: f, fired: make(chan struct{})}
	f.mu.Lock()
	f.subs = append(f.subs, s)
	f.mu.Unlock()
	return s, nil
}

// FireSubmit delivers the form's native submit signal, standing in for a
// human pressing the submit control.
func (f *Form) FireSubmit() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, s := range subs {
		s.fire()
	}
}

// Submit is the programmatic submission path a real DOM would expose.
// Nothing in the workflow calls it; tests spy on ProgrammaticSubmits to
// prove that.
func (f *Form) Submit() {
	f.mu.Lock()
	f.programmaticSubmits++
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, s := range subs {
		s.fire()
	}
}

// ProgrammaticSubmits returns how many times Submit was invoked.
func (f *Form) ProgrammaticSubmits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.programmaticSubmits
}

// OpenSubscriptions reports listeners not yet closed, for leak checks.
func (f *Form) OpenSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.closed() {
			n++
		}
	}
	return n
}

type subscription struct {
	form  *Form
	mu    sync.Mutex
	fired chan struct{}
	done  bool
}

func (s *subscription) Fired() <-chan struct{} { return s.fired }

func (s *subscription) fire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.fired)
	}
}

func (s *subscription) Close() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()

	s.form.mu.Lock()
	defer s.form.mu.Unlock()
	for i, other := range s.form.subs {
		if other == s {
			s.form.subs = append(s.form.subs[:i], s.form.subs[i+1:]...)
			break
		}
	}
}

func (s *subscription) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Field is one form control.
type Field struct {
	form *Form
	node *html.Node

	mu         sync.Mutex
	value      string
	valueSet   bool
	writes     int
	dispatches int
	marked     bool
}

// Describe implements page.FieldHandle.
func (fd *Field) Describe(ctx context.Context) (page.FieldInfo, error) {
	if err := ctx.Err(); err != nil {
		return page.FieldInfo{}, err
	}
	n := fd.node
	t := strings.ToLower(attr(n, "type"))
	if n.Data == "textarea" {
		t = "textarea"
	} else if n.Data == "select" {
		t = "select"
	} else if t == "" {
		t = "text"
	}
	id := attr(n, "id")
	info := page.FieldInfo{
		Name:           attr(n, "name"),
		Type:           t,
		ID:             id,
		Placeholder:    attr(n, "placeholder"),
		AriaLabel:      attr(n, "aria-label"),
		ExplicitLabel:  fd.labelFor(id),
		EnclosingLabel: enclosingLabel(n),
		Required:       hasAttr(n, "required"),
		Hidden:         t == "hidden",
		Visible:        isRendered(n),
	}
	return info, nil
}

// labelFor finds label[for=id] text anywhere in the document.
func (fd *Field) labelFor(id string) string {
	if id == "" {
		return ""
	}
	var text string
	walk(fd.form.page.doc, func(n *html.Node) {
		if text == "" && n.Type == html.ElementNode && n.Data == "label" && attr(n, "for") == id {
			text = textContent(n)
		}
	})
	return text
}

// SetValue implements page.FieldHandle.
func (fd *Field) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.value = value
	fd.valueSet = true
	fd.writes++
	return nil
}

// DispatchInputChange implements page.FieldHandle.
func (fd *Field) DispatchInputChange(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.dispatches++
	return nil
}

// MarkFilled implements page.FieldHandle.
func (fd *Field) MarkFilled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fd.mu.Lock()
	defer fd.mu.Unlock()
	fd.marked = true
	return nil
}

// Value returns the current value. The bool reports whether any write
// happened, distinguishing "" written from never written.
func (fd *Field) Value() (string, bool) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.value, fd.valueSet
}

// Writes returns how many SetValue calls the field received.
func (fd *Field) Writes() int {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.writes
}

// Dispatches returns how many input/change dispatches the field received.
func (fd *Field) Dispatches() int {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.dispatches
}

// Marked reports whether visual fill feedback was applied.
func (fd *Field) Marked() bool {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.marked
}

// FieldByName returns the concrete field with the given name attribute.
func (f *Form) FieldByName(name string) *Field {
	for _, fd := range f.fields {
		if attr(fd.node, "name") == name {
			return fd
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func enclosingLabel(n *html.Node) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "label" {
			return textContent(p)
		}
	}
	return ""
}

// isRendered applies a static approximation of visibility: inline
// display:none or visibility:hidden on the element or an ancestor.
func isRendered(n *html.Node) bool {
	for e := n; e != nil; e = e.Parent {
		if e.Type != html.ElementNode {
			continue
		}
		style := strings.ReplaceAll(strings.ToLower(attr(e, "style")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

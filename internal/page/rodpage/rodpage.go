// Package rodpage adapts a live go-rod page to the page capability
// interface. The workflow core never imports rod; it sees this adapter
// through page.Page only.
//
// The adapter observes form submission by attaching a passive DOM
// listener and polling its flag. Every listener it installs is keyed by
// a unique ID, tracked by the owning subscription, and removed when the
// subscription closes, so nothing survives session teardown.
package rodpage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/google/uuid"

	"signupguard/internal/page"
)

// submitPollInterval is how often an open subscription checks its flag.
const submitPollInterval = 100 * time.Millisecond

// Page wraps a rod page.
type Page struct {
	page *rod.Page
}

// New wraps an already-navigated rod page.
func New(p *rod.Page) *Page {
	return &Page{page: p}
}

// URL implements page.Page.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Forms implements page.Page.
func (p *Page) Forms(ctx context.Context) ([]page.FormHandle, error) {
	els, err := p.page.Context(ctx).Elements("form")
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	out := make([]page.FormHandle, 0, len(els))
	for _, el := range els {
		out = append(out, &Form{page: p, el: el})
	}
	return out, nil
}

// Form is one live form element.
type Form struct {
	page *Page
	el   *rod.Element
}

// VisibleText implements page.FormHandle.
func (f *Form) VisibleText(ctx context.Context) (string, error) {
	txt, err := f.el.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("form text: %w", err)
	}
	return txt, nil
}

// ActionPath implements page.FormHandle.
func (f *Form) ActionPath(ctx context.Context) (string, error) {
	action, err := f.el.Context(ctx).Attribute("action")
	if err != nil {
		return "", fmt.Errorf("form action: %w", err)
	}
	if action == nil {
		return "", nil
	}
	return *action, nil
}

// Fields implements page.FormHandle.
func (f *Form) Fields(ctx context.Context) ([]page.FieldHandle, error) {
	els, err := f.el.Context(ctx).Elements(
		"input:not([type=submit]):not([type=button]):not([type=image]):not([type=reset]), select, textarea")
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	out := make([]page.FieldHandle, 0, len(els))
	for _, el := range els {
		out = append(out, &Field{el: el})
	}
	return out, nil
}

// Buttons implements page.FormHandle.
func (f *Form) Buttons(ctx context.Context) ([]page.ButtonInfo, error) {
	res, err := f.el.Context(ctx).Eval(`() => {
		const out = [];
		for (const b of this.querySelectorAll('button, input[type=submit], input[type=button]')) {
			out.push({
				text: b.tagName === 'BUTTON' ? (b.textContent || '').trim() : (b.value || ''),
				type: (b.getAttribute('type') || '').toLowerCase(),
				name: b.getAttribute('name') || '',
			});
		}
		return out;
	}`)
	if err != nil {
		return nil, fmt.Errorf("query buttons: %w", err)
	}
	var out []page.ButtonInfo
	for _, b := range res.Value.Arr() {
		out = append(out, page.ButtonInfo{
			Text: b.Get("text").Str(),
			Type: b.Get("type").Str(),
			Name: b.Get("name").Str(),
		})
	}
	return out, nil
}

// SubscribeSubmit implements page.FormHandle. The installed listener is
// passive and capture-phase; it records that the event fired and does
// nothing else.
func (f *Form) SubscribeSubmit(ctx context.Context) (page.Subscription, error) {
	id := uuid.NewString()
	_, err := f.el.Context(ctx).Eval(fmt.Sprintf(`() => {
		window.__sgSubmitWatch = window.__sgSubmitWatch || {};
		const watch = { fired: false };
		watch.listener = () => { watch.fired = true; };
		this.addEventListener('submit', watch.listener, { capture: true, passive: true });
		window.__sgSubmitWatch[%q] = watch;
	}`, id))
	if err != nil {
		return nil, fmt.Errorf("attach submit listener: %w", err)
	}

	s := &subscription{
		form:  f,
		id:    id,
		fired: make(chan struct{}),
		stop:  make(chan struct{}),
	}
	go s.poll()
	return s, nil
}

type subscription struct {
	form  *Form
	id    string
	fired chan struct{}
	stop  chan struct{}
	once  sync.Once
}

func (s *subscription) Fired() <-chan struct{} { return s.fired }

func (s *subscription) poll() {
	ticker := time.NewTicker(submitPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			res, err := s.form.el.Eval(fmt.Sprintf(
				`() => { const w = (window.__sgSubmitWatch || {})[%q]; return !!(w && w.fired); }`, s.id))
			if err != nil {
				continue
			}
			if res.Value.Bool() {
				close(s.fired)
				<-s.stop
				return
			}
		}
	}
}

// Close detaches the DOM listener and stops the poller. Idempotent.
func (s *subscription) Close() {
	s.once.Do(func() {
		close(s.stop)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best effort: the page may already be gone at session end.
		_, _ = s.form.el.Context(ctx).Eval(fmt.Sprintf(`() => {
			const reg = window.__sgSubmitWatch || {};
			const w = reg[%q];
			if (w) {
				this.removeEventListener('submit', w.listener, { capture: true });
				delete reg[%q];
			}
		}`, s.id, s.id))
	})
}

// Field is one live form control.
type Field struct {
	el *rod.Element
}

// Describe implements page.FieldHandle.
func (fd *Field) Describe(ctx context.Context) (page.FieldInfo, error) {
	res, err := fd.el.Context(ctx).Eval(`() => {
		const tag = this.tagName.toLowerCase();
		let type = (this.getAttribute('type') || '').toLowerCase();
		if (tag === 'textarea') type = 'textarea';
		else if (tag === 'select') type = 'select';
		else if (!type) type = 'text';
		const style = window.getComputedStyle(this);
		let explicit = '';
		if (this.id) {
			const lab = document.querySelector('label[for="' + this.id + '"]');
			if (lab) explicit = (lab.textContent || '').trim();
		}
		let enclosing = '';
		const anc = this.closest('label');
		if (anc) enclosing = (anc.textContent || '').trim();
		return {
			name: this.getAttribute('name') || '',
			type: type,
			id: this.id || '',
			placeholder: this.getAttribute('placeholder') || '',
			ariaLabel: this.getAttribute('aria-label') || '',
			explicitLabel: explicit,
			enclosingLabel: enclosing,
			required: this.hasAttribute('required'),
			hidden: type === 'hidden',
			visible: style.display !== 'none' && style.visibility !== 'hidden',
		};
	}`)
	if err != nil {
		return page.FieldInfo{}, fmt.Errorf("describe field: %w", err)
	}
	v := res.Value
	return page.FieldInfo{
		Name:           v.Get("name").Str(),
		Type:           v.Get("type").Str(),
		ID:             v.Get("id").Str(),
		Placeholder:    v.Get("placeholder").Str(),
		AriaLabel:      v.Get("ariaLabel").Str(),
		ExplicitLabel:  v.Get("explicitLabel").Str(),
		EnclosingLabel: v.Get("enclosingLabel").Str(),
		Required:       v.Get("required").Bool(),
		Hidden:         v.Get("hidden").Bool(),
		Visible:        v.Get("visible").Bool(),
	}, nil
}

// SetValue implements page.FieldHandle.
func (fd *Field) SetValue(ctx context.Context, value string) error {
	_, err := fd.el.Context(ctx).Eval(`(v) => { this.value = v; }`, value)
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}
	return nil
}

// DispatchInputChange implements page.FieldHandle.
func (fd *Field) DispatchInputChange(ctx context.Context) error {
	_, err := fd.el.Context(ctx).Eval(`() => {
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`)
	if err != nil {
		return fmt.Errorf("dispatch input/change: %w", err)
	}
	return nil
}

// MarkFilled implements page.FieldHandle. Transient outline so the human
// can see which fields were pre-filled; reverts after a short delay.
func (fd *Field) MarkFilled(ctx context.Context) error {
	_, err := fd.el.Context(ctx).Eval(`() => {
		const prev = this.style.outline;
		this.style.outline = '2px solid #4caf50';
		setTimeout(() => { this.style.outline = prev; }, 1500);
	}`)
	if err != nil {
		return fmt.Errorf("mark filled: %w", err)
	}
	return nil
}

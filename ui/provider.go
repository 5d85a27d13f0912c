package ui

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/a-h/templ"
	"github.com/sghaida/scopedi/di"
)

// ProviderNode layers a child scope over the ambient one for its children.
//
// The scope is created on first render and kept for the lifetime of the node,
// so constructors run once per mount however often the tree re-renders.
// The node's identity is the memo key: build the tree once and re-render it,
// rather than calling Provide inside a render function.
type ProviderNode struct {
	providers []di.Provider
	children  []templ.Component
	label     string

	mu    sync.Mutex
	scope *di.Scope
}

// Provide returns a node binding providers for children.
func Provide(providers []di.Provider, children ...templ.Component) *ProviderNode {
	return &ProviderNode{
		providers: append([]di.Provider(nil), providers...),
		children:  children,
	}
}

// Label names the node's scope in logs and debug output.
func (p *ProviderNode) Label(label string) *ProviderNode {
	p.label = label
	return p
}

// Render implements templ.Component.
func (p *ProviderNode) Render(ctx context.Context, w io.Writer) error {
	scope, err := p.mount(ctx)
	if err != nil {
		return err
	}
	ctx = WithScope(ctx, scope)

	if debugFrom(ctx) {
		return p.renderDebug(ctx, w, scope)
	}
	return renderAll(ctx, w, p.children)
}

func (p *ProviderNode) mount(ctx context.Context) (*di.Scope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scope != nil && p.scope.Status() == di.StatusActive {
		return p.scope, nil
	}

	var opts []di.Option
	if p.label != "" {
		opts = append(opts, di.WithLabel(p.label))
	}
	scope, err := di.NewScope(p.providers, AmbientScope(ctx), opts...)
	if err != nil {
		return nil, err
	}
	p.scope = scope
	register(ctx, p)
	return scope, nil
}

// Scope returns the node's scope, nil before the first render.
func (p *ProviderNode) Scope() *di.Scope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scope
}

// Status reports StatusUninitialized until the first render.
func (p *ProviderNode) Status() di.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scope == nil {
		return di.StatusUninitialized
	}
	return p.scope.Status()
}

// Unmount disposes the node's scope. The next render mounts a fresh one.
func (p *ProviderNode) Unmount() error {
	p.mu.Lock()
	scope := p.scope
	p.scope = nil
	p.mu.Unlock()

	if scope == nil {
		return nil
	}
	return scope.Dispose()
}

func (p *ProviderNode) renderDebug(ctx context.Context, w io.Writer, scope *di.Scope) error {
	title := "Child Injector"
	if parent := scope.Parent(); parent != nil && parent.IsRoot() {
		title = "Root Injector"
	}
	if p.label != "" {
		title = p.label
	}

	registered, err := json.MarshalIndent(di.Describe(scope), "", "  ")
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, `<section class="di-injector"><header><h4>`+
		templ.EscapeString(title)+`</h4><pre><b>Registered Providers:</b> `+
		templ.EscapeString(string(registered))+`</pre></header>`); err != nil {
		return err
	}
	if err := renderAll(ctx, w, p.children); err != nil {
		return err
	}
	_, err = io.WriteString(w, `</section>`)
	return err
}

func renderAll(ctx context.Context, w io.Writer, children []templ.Component) error {
	for _, c := range children {
		if c == nil {
			continue
		}
		if err := c.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

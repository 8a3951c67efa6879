// Package selector implements ordered fallback resolution of UI locator
// strategies. The target site exposes no stable DOM contract, so every
// navigation action carries a list of candidate strategies tried in order;
// the first that matches wins. Robustness comes from redundancy of
// strategies, not from retries: each strategy gets exactly one attempt
// within its own short timeout.
package selector

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates how a strategy's query is interpreted by the page.
type Kind int

const (
	// CSS matches by CSS selector.
	CSS Kind = iota
	// XPath matches by XPath expression.
	XPath
	// Text matches by visible element text (DOM search).
	Text
)

func (k Kind) String() string {
	switch k {
	case CSS:
		return "css"
	case XPath:
		return "xpath"
	case Text:
		return "text"
	default:
		return "unknown"
	}
}

// Strategy is one candidate way of locating a UI element.
type Strategy struct {
	Name  string
	Query string
	Kind  Kind
}

// Requirement is the outcome a strategy must satisfy to count as a match.
type Requirement int

const (
	// Exists requires the element to be present in the DOM.
	Exists Requirement = iota
	// Clickable requires the element to be visible (and therefore clickable).
	Clickable
)

// Page is the minimal surface the resolver probes. Implemented by the
// navigator's chromedp tab and by fakes in tests.
type Page interface {
	WaitReady(ctx context.Context, s Strategy) error
	WaitVisible(ctx context.Context, s Strategy) error
	Click(ctx context.Context, s Strategy) error
	Fill(ctx context.Context, s Strategy, value string) error
}

// Match reports which strategy produced a successful resolution.
type Match struct {
	Strategy Strategy
	Index    int
}

// NotFoundError is returned when every strategy in a list has been
// exhausted without a match. It is always non-fatal at the point of
// origin; callers decide whether to fall back, skip, or mark degraded.
type NotFoundError struct {
	Attempted []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no selector strategy matched (tried %s)", strings.Join(e.Attempted, ", "))
}

// Resolver tries ordered strategy lists against a live page.
type Resolver struct {
	perStrategyTimeout time.Duration
}

// New creates a Resolver with the given per-strategy probe timeout.
func New(perStrategyTimeout time.Duration) *Resolver {
	if perStrategyTimeout <= 0 {
		perStrategyTimeout = 750 * time.Millisecond
	}
	return &Resolver{perStrategyTimeout: perStrategyTimeout}
}

// Resolve tries each strategy in order and returns the first that satisfies
// the requirement. Read-only: no clicks, no fills. Strategies past the first
// match are never attempted.
func (r *Resolver) Resolve(ctx context.Context, p Page, strategies []Strategy, req Requirement) (Match, error) {
	attempted := make([]string, 0, len(strategies))
	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		attempted = append(attempted, s.Name)

		probeCtx, cancel := context.WithTimeout(ctx, r.perStrategyTimeout)
		var err error
		if req == Clickable {
			err = p.WaitVisible(probeCtx, s)
		} else {
			err = p.WaitReady(probeCtx, s)
		}
		cancel()
		if err == nil {
			return Match{Strategy: s, Index: i}, nil
		}
	}
	return Match{}, &NotFoundError{Attempted: attempted}
}

// Click resolves a clickable element then clicks it, reporting the strategy
// used. The click is the only side effect and happens at most once.
func (r *Resolver) Click(ctx context.Context, p Page, strategies []Strategy) (Match, error) {
	m, err := r.Resolve(ctx, p, strategies, Clickable)
	if err != nil {
		return Match{}, err
	}
	clickCtx, cancel := context.WithTimeout(ctx, r.perStrategyTimeout)
	defer cancel()
	if err := p.Click(clickCtx, m.Strategy); err != nil {
		return Match{}, fmt.Errorf("click via %s: %w", m.Strategy.Name, err)
	}
	return m, nil
}

// Fill resolves a visible input then fills it with value.
func (r *Resolver) Fill(ctx context.Context, p Page, strategies []Strategy, value string) (Match, error) {
	m, err := r.Resolve(ctx, p, strategies, Clickable)
	if err != nil {
		return Match{}, err
	}
	fillCtx, cancel := context.WithTimeout(ctx, r.perStrategyTimeout)
	defer cancel()
	if err := p.Fill(fillCtx, m.Strategy, value); err != nil {
		return Match{}, fmt.Errorf("fill via %s: %w", m.Strategy.Name, err)
	}
	return m, nil
}

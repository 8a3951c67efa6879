package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgnsrekt/sc_agent/internal/selector"
)

// SelectChartList switches the tab's active ChartList. Returns cacheHit=true
// (and performs zero UI interactions) when the requested list is already the
// cached one. The cache records that the selection click was issued; the
// page is not re-probed to confirm the switch landed.
func (n *Navigator) SelectChartList(ctx context.Context, tab Tab, name string) (cacheHit bool, err error) {
	if name == "" {
		return false, newError(CodeValidation, "chartlist name must not be empty", nil)
	}
	if n.cachedChartList() == name {
		n.log.Debug("chartlist cache hit", "chartlist", name)
		return true, nil
	}

	entries, err := n.openDropdown(ctx, tab, chartListToggleStrategies, "chartlist")
	if err != nil {
		return false, err
	}

	matched, ok := matchEntry(entries, name)
	if !ok {
		return false, newError(CodeChartListNotFound,
			fmt.Sprintf("chartlist %q not in dropdown (%d entries)", name, len(entries)), nil)
	}

	if _, err := n.resolver.Click(ctx, tab, entryStrategy(matched)); err != nil {
		return false, newError(CodeChartListNotFound,
			fmt.Sprintf("chartlist entry %q matched but could not be clicked", matched), err)
	}

	n.setChartList(name)
	n.log.Info("selected chartlist", "chartlist", name, "matched_entry", matched)
	return false, nil
}

// SelectChart picks a chart by name inside the active ChartList.
func (n *Navigator) SelectChart(ctx context.Context, tab Tab, name string) error {
	if name == "" {
		return newError(CodeValidation, "chart name must not be empty", nil)
	}

	entries, err := n.openDropdown(ctx, tab, chartToggleStrategies, "chart")
	if err != nil {
		return err
	}

	matched, ok := matchEntry(entries, name)
	if !ok {
		return newError(CodeChartNotFound,
			fmt.Sprintf("chart %q not in dropdown (%d entries)", name, len(entries)), nil)
	}

	if _, err := n.resolver.Click(ctx, tab, entryStrategy(matched)); err != nil {
		return newError(CodeChartNotFound,
			fmt.Sprintf("chart entry %q matched but could not be clicked", matched), err)
	}

	n.log.Info("selected chart", "chart", name, "matched_entry", matched)
	return nil
}

// SelectTimeframeBox clicks ChartStyle preset box 1..12. A locator miss
// keeps whatever style is already active and is reported as non-fatal; only
// an out-of-range box is an error.
func (n *Navigator) SelectTimeframeBox(ctx context.Context, tab Tab, box int) error {
	if box < 1 || box > 12 {
		return newError(CodeValidation, fmt.Sprintf("timeframe box %d out of range 1-12", box), nil)
	}
	if m, err := n.resolver.Click(ctx, tab, timeframeBoxStrategies(box)); err != nil {
		n.log.Warn("timeframe box not found, keeping active style", "box", box, "error", err)
		return nil
	} else {
		n.log.Info("selected timeframe box", "box", box, "strategy", m.Strategy.Name)
	}
	return nil
}

// ListChartLists opens the ChartList dropdown and scrapes the entry names.
// Used by the diagnose mode to show the operator what actually exists.
func (n *Navigator) ListChartLists(ctx context.Context, tab Tab) ([]string, error) {
	entries, err := n.openDropdown(ctx, tab, chartListToggleStrategies, "chartlist")
	if err != nil {
		return nil, err
	}
	// Close the dropdown again so later selections start from a known state.
	if _, err := n.resolver.Click(ctx, tab, chartListToggleStrategies); err != nil {
		n.log.Debug("could not re-toggle chartlist dropdown closed", "error", err)
	}
	n.setChartList("")
	return entries, nil
}

// openDropdown clicks a dropdown toggle and scrapes the visible entries.
func (n *Navigator) openDropdown(ctx context.Context, tab Tab, toggle []selector.Strategy, kind string) ([]string, error) {
	if _, err := n.resolver.Click(ctx, tab, toggle); err != nil {
		return nil, newError(CodeElementNotFound, kind+" dropdown toggle not found", err)
	}
	for _, q := range dropdownEntryQueries {
		entries, err := tab.TextAll(ctx, q)
		if err != nil {
			n.log.Debug("dropdown entry scrape failed", "query", q, "error", err)
			continue
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, nil
}

// matchEntry finds the dropdown entry for a requested name: exact match
// first, then the first case-insensitive substring match.
func matchEntry(entries []string, name string) (string, bool) {
	for _, e := range entries {
		if e == name {
			return e, true
		}
	}
	lower := strings.ToLower(name)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e), lower) {
			return e, true
		}
	}
	return "", false
}

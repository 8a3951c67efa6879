package session

import "github.com/dgnsrekt/sc_agent/internal/browser"

// Monitor describes one display in screen coordinates.
type Monitor struct {
	X      int
	Y      int
	Width  int
	Height int
}

// DefaultPrimary and DefaultSecondary assume two 1080p displays side by side.
var (
	DefaultPrimary   = Monitor{Width: 1920, Height: 1080}
	DefaultSecondary = Monitor{X: 1920, Width: 1920, Height: 1080}
)

// SplitScreenPositions tiles n windows across one monitor: 1 full screen,
// 2 side-by-side halves, up to 4 in a 2x2 grid, beyond that a 50px cascade
// capped at 1200x800.
func SplitScreenPositions(n int, m Monitor) []browser.Rect {
	if n <= 0 {
		return nil
	}

	switch {
	case n == 1:
		return []browser.Rect{{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}}
	case n == 2:
		half := m.Width / 2
		return []browser.Rect{
			{X: m.X, Y: m.Y, Width: half, Height: m.Height},
			{X: m.X + half, Y: m.Y, Width: half, Height: m.Height},
		}
	case n <= 4:
		halfW := m.Width / 2
		halfH := m.Height / 2
		grid := []browser.Rect{
			{X: m.X, Y: m.Y, Width: halfW, Height: halfH},
			{X: m.X + halfW, Y: m.Y, Width: halfW, Height: halfH},
			{X: m.X, Y: m.Y + halfH, Width: halfW, Height: halfH},
			{X: m.X + halfW, Y: m.Y + halfH, Width: halfW, Height: halfH},
		}
		return grid[:n]
	default:
		const offset = 50
		positions := make([]browser.Rect, n)
		for i := 0; i < n; i++ {
			positions[i] = browser.Rect{
				X:      m.X + i*offset,
				Y:      m.Y + i*offset,
				Width:  min(m.Width-i*offset, 1200),
				Height: min(m.Height-i*offset, 800),
			}
		}
		return positions
	}
}

// MultiMonitorPositions spreads sessions across two monitors: with one or
// two sessions each gets a full monitor, otherwise the first half tiles the
// primary and the rest tile the secondary.
func MultiMonitorPositions(sessionIDs []string, primary, secondary Monitor) map[string]browser.Rect {
	positions := make(map[string]browser.Rect, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return positions
	}

	if len(sessionIDs) <= 2 {
		positions[sessionIDs[0]] = browser.Rect{X: primary.X, Y: primary.Y, Width: primary.Width, Height: primary.Height}
		if len(sessionIDs) == 2 {
			positions[sessionIDs[1]] = browser.Rect{X: secondary.X, Y: secondary.Y, Width: secondary.Width, Height: secondary.Height}
		}
		return positions
	}

	half := len(sessionIDs) / 2
	primaryRects := SplitScreenPositions(half, primary)
	secondaryRects := SplitScreenPositions(len(sessionIDs)-half, secondary)
	for i, id := range sessionIDs[:half] {
		positions[id] = primaryRects[i]
	}
	for i, id := range sessionIDs[half:] {
		positions[id] = secondaryRects[i]
	}
	return positions
}

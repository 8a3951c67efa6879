package navigator

import (
	"context"

	"github.com/dgnsrekt/sc_agent/internal/selector"
)

// kioskCSS strips site chrome and stretches the chart to the viewport so
// screenshots and wall displays show nothing but the chart.
const kioskCSS = `
::-webkit-scrollbar { display: none !important; }
* { scrollbar-width: none !important; }
html, body {
	width: 100vw !important;
	height: 100vh !important;
	margin: 0 !important;
	padding: 0 !important;
	overflow: hidden !important;
}
.header, .navbar, .top-bar, .toolbar, .menu-bar,
.modal, .popup, .overlay, .banner,
.ad, .advertisement, .promo, iframe[src*="doubleclick"] {
	display: none !important;
}
.chart-container, .chart-wrapper, #chartImg {
	position: fixed !important;
	top: 0 !important;
	left: 0 !important;
	width: 100vw !important;
	height: 100vh !important;
	margin: 0 !important;
	padding: 0 !important;
	z-index: 9999 !important;
}
canvas { width: 100% !important; height: 100% !important; display: block !important; }
.content, .main, .container { padding: 0 !important; margin: 0 !important; max-width: 100% !important; }
body { background: black !important; }
`

const injectStyleJS = `(css => {
	const tag = document.createElement('style');
	tag.setAttribute('data-kiosk', '1');
	tag.textContent = css;
	document.head.appendChild(tag);
	return true;
})(` + "`" + kioskCSS + "`" + `)`

// ApplyKioskView injects the chart-maximizing stylesheet into the tab.
// Purely cosmetic; failures are logged and swallowed.
func (n *Navigator) ApplyKioskView(ctx context.Context, tab Tab) {
	if _, err := n.resolver.Resolve(ctx, tab, chartElementStrategies, selector.Exists); err != nil {
		n.log.Debug("no chart element before kiosk styling", "error", err)
	}
	var ok bool
	if err := tab.Evaluate(ctx, injectStyleJS, &ok); err != nil {
		n.log.Warn("kiosk styling failed", "error", err)
		return
	}
	n.log.Debug("kiosk styling applied")
}

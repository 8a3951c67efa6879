package navigator

import (
	"fmt"

	"github.com/dgnsrekt/sc_agent/internal/selector"
)

// Locator catalogs for stockcharts.com. The site ships no stable automation
// hooks, so every element carries ordered fallbacks; keep the most specific
// strategy first and broad structural guesses last.

var usernameStrategies = []selector.Strategy{
	{Name: "name=username", Query: `input[name='username']`, Kind: selector.CSS},
	{Name: "type=email", Query: `input[type='email']`, Kind: selector.CSS},
	{Name: "id=username", Query: `#username`, Kind: selector.CSS},
	{Name: "placeholder-email", Query: `input[placeholder*='email' i]`, Kind: selector.CSS},
	{Name: "placeholder-username", Query: `input[placeholder*='username' i]`, Kind: selector.CSS},
}

var passwordStrategies = []selector.Strategy{
	{Name: "name=password", Query: `input[name='password']`, Kind: selector.CSS},
	{Name: "type=password", Query: `input[type='password']`, Kind: selector.CSS},
	{Name: "id=password", Query: `#password`, Kind: selector.CSS},
}

var loginSubmitStrategies = []selector.Strategy{
	{Name: "button-submit", Query: `button[type='submit']`, Kind: selector.CSS},
	{Name: "input-submit", Query: `input[type='submit']`, Kind: selector.CSS},
	{Name: "text-log-in", Query: `//button[contains(normalize-space(.), 'Log In') or contains(normalize-space(.), 'Log in')]`, Kind: selector.XPath},
	{Name: "text-sign-in", Query: `//button[contains(normalize-space(.), 'Sign In') or contains(normalize-space(.), 'Sign in')]`, Kind: selector.XPath},
}

// Presence of any of these means the member session is live.
var loggedInStrategies = []selector.Strategy{
	{Name: "logout-link", Query: `a[href*='logout']`, Kind: selector.CSS},
	{Name: "signout-link", Query: `a[href*='signout']`, Kind: selector.CSS},
	{Name: "text-my-account", Query: `//a[contains(normalize-space(.), 'My Account')]`, Kind: selector.XPath},
	{Name: "text-log-out", Query: `//a[contains(normalize-space(.), 'Log Out')]`, Kind: selector.XPath},
}

// Presence of a password input means we are (still) on the login form.
var loggedOutStrategies = []selector.Strategy{
	{Name: "password-field", Query: `input[type='password']`, Kind: selector.CSS},
	{Name: "login-form", Query: `form[action*='login']`, Kind: selector.CSS},
}

var loginErrorStrategies = []selector.Strategy{
	{Name: "error-box", Query: `.error`, Kind: selector.CSS},
	{Name: "alert-danger", Query: `.alert-danger`, Kind: selector.CSS},
	{Name: "text-invalid", Query: `//*[contains(text(), 'Invalid') or contains(text(), 'incorrect')]`, Kind: selector.XPath},
}

var chartElementStrategies = []selector.Strategy{
	{Name: "chart-image", Query: `.chart-image`, Kind: selector.CSS},
	{Name: "chart-img-id", Query: `#chartImg`, Kind: selector.CSS},
	{Name: "img-alt-chart", Query: `img[alt*='chart' i]`, Kind: selector.CSS},
	{Name: "img-src-chart", Query: `img[src*='chart' i]`, Kind: selector.CSS},
	{Name: "canvas", Query: `canvas`, Kind: selector.CSS},
	{Name: "svg-chart", Query: `svg.chart`, Kind: selector.CSS},
}

var chartListToggleStrategies = []selector.Strategy{
	{Name: "chartlist-toggle", Query: `#chart-list-dropdown-menu-toggle-button`, Kind: selector.CSS},
	{Name: "chartlist-toggle-class", Query: `.chart-list-dropdown-toggle`, Kind: selector.CSS},
	{Name: "text-chartlists", Query: `//button[contains(normalize-space(.), 'ChartList')]`, Kind: selector.XPath},
}

var chartToggleStrategies = []selector.Strategy{
	{Name: "chart-toggle", Query: `#chart-dropdown-menu-toggle-button`, Kind: selector.CSS},
	{Name: "chart-toggle-class", Query: `.chart-dropdown-toggle`, Kind: selector.CSS},
	{Name: "text-charts", Query: `//button[contains(normalize-space(.), 'Chart') and not(contains(normalize-space(.), 'ChartList'))]`, Kind: selector.XPath},
}

// CSS queries probed in order when scraping open-dropdown entries.
var dropdownEntryQueries = []string{
	".chart-list-dropdown-menu a",
	".dropdown-menu.show a",
	".dropdown-menu a",
	".dropdown-item",
}

// timeframeBoxStrategies builds structural locators for ChartStyle box n.
// The first child of each container is a non-preset control, hence the +1.
func timeframeBoxStrategies(box int) []selector.Strategy {
	pos := box + 1
	return []selector.Strategy{
		{Name: "style-boxes-nth", Query: fmt.Sprintf(".chartstyle-boxes a:nth-of-type(%d)", pos), Kind: selector.CSS},
		{Name: "style-list-nth", Query: fmt.Sprintf("#chart-styles li:nth-of-type(%d) a", pos), Kind: selector.CSS},
		{Name: "style-buttons-nth", Query: fmt.Sprintf("(//div[contains(@class,'style-buttons')]//a)[%d]", pos), Kind: selector.XPath},
	}
}

// entryStrategy locates a dropdown entry by its exact scraped text.
func entryStrategy(text string) []selector.Strategy {
	return []selector.Strategy{
		{Name: "entry-text", Query: fmt.Sprintf(`//a[normalize-space(text())=%q]`, text), Kind: selector.XPath},
		{Name: "entry-item-text", Query: fmt.Sprintf(`//*[contains(@class,'dropdown-item')][normalize-space(text())=%q]`, text), Kind: selector.XPath},
	}
}

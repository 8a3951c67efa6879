package navigator

// NavigationState tracks where a navigator believes its tab is. The
// CurrentChartList field is a one-slot cache: set only after a ChartList
// selection click has been issued, cleared whenever prior state can no
// longer be trusted.
type NavigationState struct {
	Authenticated    bool
	CurrentChartList string
	CurrentTicker    string
}

// State returns a copy of the current navigation state. Safe from any
// goroutine; the control plane reads it while a batch is running.
func (n *Navigator) State() NavigationState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// ResetBatch invalidates the ChartList cache. Called at the start of every
// batch: nothing guarantees the dropdown selection survived whatever
// happened since the last one.
func (n *Navigator) ResetBatch() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.CurrentChartList = ""
	n.state.CurrentTicker = ""
}

func (n *Navigator) setAuthenticated() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.Authenticated = true
}

func (n *Navigator) setTicker(ticker string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.CurrentTicker = ticker
}

// setChartList updates the one-slot cache; empty clears it.
func (n *Navigator) setChartList(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state.CurrentChartList = name
}

func (n *Navigator) cachedChartList() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.CurrentChartList
}

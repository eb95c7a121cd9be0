package vanillaextract

// HotUpdatePrefix prefixes every scope's hot-update event channel. The
// payload of each event is the scope's new raw CSS text.
const HotUpdatePrefix = "vanilla-extract-style-update:"

// HotUpdateEvent returns the dedicated event channel name for a scope.
func HotUpdateEvent(scopeID string) string {
	return HotUpdatePrefix + scopeID
}

// notifyStyleUpdate invalidates the scope's cached virtual module and
// broadcasts the new CSS to connected clients. It is called only when a
// recompile actually changed the scope's CSS; unchanged recompiles and
// first registrations never reach it, which keeps no-op recompiles free
// of client-side style churn.
func (p *Plugin) notifyStyleUpdate(scopeID, css string) {
	p.mu.Lock()
	serve := p.serve
	graph := p.graph
	hub := p.hub
	p.mu.Unlock()

	if !serve {
		return
	}

	if graph != nil && graph.Invalidate(p.VirtualID(scopeID).String()) {
		p.m.Invalidations.Inc()
	}

	if hub != nil {
		hub.Broadcast(HotUpdateEvent(scopeID), css)
		p.m.HMRBroadcasts.Inc()
	}
}

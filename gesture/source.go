package gesture

// Source delivers raw key events from the platform keyboard layer.
type Source interface {
	// Start begins delivery. Events arrive on the returned channel until
	// Close; the channel is never closed by the source while running.
	Start() (<-chan KeyEvent, error)
	Close()
}

package tui

import "sync"

// Navigator is the terminal front-end's location. The finalize pipeline
// navigates it to the results view; the room model listens on Changes.
type Navigator struct {
	mu       sync.Mutex
	location string
	changes  chan string
}

// NewNavigator starts at location.
func NewNavigator(location string) *Navigator {
	return &Navigator{
		location: location,
		changes:  make(chan string, 4),
	}
}

// Navigate implements finalize.Navigator. It never blocks; a change nobody
// reads in time is dropped, and Location still reflects it.
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.location = path
	n.mu.Unlock()

	select {
	case n.changes <- path:
	default:
	}
}

// Location implements finalize.Navigator.
func (n *Navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Changes delivers each navigation.
func (n *Navigator) Changes() <-chan string {
	return n.changes
}

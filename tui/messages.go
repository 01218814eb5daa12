package tui

// refreshMsg fires on every redraw tick.
type refreshMsg struct{}

// NavigatedMsg reports that the finalize pipeline moved to Path.
type NavigatedMsg struct {
	Path string
}

// DoneMsg reports that the session reached Completed.
type DoneMsg struct{}

// unloadedMsg reports that the unload path settled.
type unloadedMsg struct{}

package tui

// Key bindings used in handleKey.
const (
	KeyFinish      = "f"
	KeyFinishUpper = "F"
	KeyQuit        = "q"
	KeyQuitUpper   = "Q"
	KeyCtrlC       = "ctrl+c"
	KeyUp          = "up"
	KeyDown        = "down"
	KeyK           = "k"
	KeyJ           = "j"
)

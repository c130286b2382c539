package ui

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyQuitUpper     = "Q"
	KeyCtrlC         = "ctrl+c"
	KeySpace         = " "
	KeyUp            = "up"
	KeyDown          = "down"
	KeyJ             = "j"
	KeyK             = "k"
	KeyCycleEngine   = "e"
	KeyCycleEngineUp = "E"
	KeyCycleDevice   = "i"
	KeyCycleDeviceUp = "I"
)

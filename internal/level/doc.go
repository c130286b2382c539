// Package level meters microphone input energy.
// It reports a smoothed 0-1 level for the status bar and counts voiced blocks per session.
package level

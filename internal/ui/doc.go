// Package ui is the terminal front end: a results table coloured by engine,
// a status bar with the input level, and the record/engine/device controls.
package ui

// Package sequencer serializes finished results onto the display list.
package sequencer

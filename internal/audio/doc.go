// Package audio handles microphone capture, frame hand-off and fixed-size windowing.
// Frames flow from the PortAudio callback through an unbounded FrameQueue into a
// Windower that cuts 10-second chunks, which are encoded to WAV for transcription.
package audio

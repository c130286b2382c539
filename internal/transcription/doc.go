// Package transcription turns audio chunks into utterances.
// It provides the AssemblyAI upload/poll client with retry and exponential backoff,
// a local whisper.cpp engine, and the Dispatcher that runs every chunk on its own
// goroutine under a configurable concurrency cap.
package transcription

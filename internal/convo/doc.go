// Package convo holds the rolling conversation context shared by chunk workers.
package convo

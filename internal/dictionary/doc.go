// Package dictionary fetches word definitions over HTTP with a TTL cache in front.
package dictionary

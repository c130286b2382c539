// Package enrich turns a transcribed utterance into a display row.
//
// For each utterance the pipeline extracts concepts and named entities,
// appends the text to the shared conversation window, checks the joined
// context for recall difficulty and hesitation, asks the LLM chain for
// support and suggestions, and defines rare words. Fields that cannot be
// computed are filled with a placeholder so a row is never partially empty.
package enrich

// Package types contains the records that flow between the stages of a consent sync.
//
// Every type here is part of the checkpoint payload handed to a continuation, so all of
// them round-trip through JSON.
package types

// Package batch provides helpers for tools that act on several task ids in
// one call: parsing id lists given as strings or arrays, running the
// operation per id, and summarizing partial failures.
package batch

// Package internal holds credential plumbing shared by the engine and its
// flows: refresh secret generation, hashing, and wire encoding.
package internal

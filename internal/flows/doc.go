// Package flows implements the token lifecycle operations as plain
// functions over dependency structs. Keeping the decision logic here, free
// of the root package, lets each flow be exercised in isolation and keeps
// the engine methods down to wiring, auditing, and metrics.
package flows

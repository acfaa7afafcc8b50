// Package domain defines the core domain types and store contracts.
//
// This package contains concept-oriented files (title.go, content.go, score.go,
// aggregate.go, etc.) with shared types and cross-cutting interfaces. No
// implementation code - just contracts. Prevents circular imports by keeping
// interfaces on the consumer side.
package domain

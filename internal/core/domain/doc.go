// Package domain defines the core business entities for Persona.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Post: A single social-media message with engagement counters
//   - Profile: Summary of the account that authored a timeline
//   - CacheEntry: A cached snapshot of posts for one query identity
//   - DocChunk: A titled, keyword-tagged section of product documentation
//   - Answer: The persona's reply to a question
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

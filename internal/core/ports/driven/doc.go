// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SocialClient: Fetches posts and profiles from the upstream social API
//   - RecordStore: Flat key to JSON document persistence (cache, docs snapshot)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Generation backend. Without it, answers use the keyword fallback.
//   - DocsSource: Documentation corpus fetcher. Without it, grounding uses static text.
//   - PromptStore: Customisable prompt templates. Without it, built-in defaults apply.
//   - SchedulerStore: Scheduler state. Without it, task state is kept in memory.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven

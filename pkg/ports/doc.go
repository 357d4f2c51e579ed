/*
Package ports defines the driven ports (interfaces) for the Fable engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various story sources, session stores, script
evaluators and AI services.

# Key Interfaces

  - CartridgeLoader: Loads the compiled story (e.g., from a file, Loam or Memory).
  - SessionStore: Persists and loads player Sessions.
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - Evaluator: Runs author scripts against session variables.
  - Extractor: Turns free-form player input into typed fields.
  - ServiceProvider: Text, speech, media generation, moderation and fetching.
*/
package ports

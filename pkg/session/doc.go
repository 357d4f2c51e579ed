/*
Package session orchestrates session persistence around the engine.

The engine itself never locks: it assumes callers serialize advance calls
per session. Manager provides that guarantee with a reference-counted mutex
per session ID and, across replicas, an optional distributed lock. Its
Advance method is the load, advance, save cycle used by the HTTP and MCP
adapters.
*/
package session

/*
Package domain contains the core models of the Fable story engine.

It defines the story tree, the player session and the instructions the engine
hands back to a host. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Node: An element of the story tree (dialogue, variable, branch, loop, ...).
  - Session: The persistent, serializable state of one player's playthrough.
  - Frame: A control-flow stack entry pushed by blocks, scopes and loops.
  - Checkpoint: A snapshot of the session used for replay and undo.
  - Op: An instruction for the host (play media, sleep, request input, ...).
  - Seam: The reason an advance call stopped.
  - Value: The dynamic value type stored in session state.
*/
package domain

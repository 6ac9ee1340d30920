/*
Package domain contains the core models of the tick story orchestrator.

It defines the declarative story (state machine, actions, contexts, intents), the
runtime configuration derived from it, the per-conversation Session and the Result of
a processing call. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Story / Configuration: what the author declared, and its validated runtime view.
  - Action: a conversational step, also a leaf state of the intent state machine.
  - Session: the persisted snapshot of a conversation (state, contexts, objectives).
  - Result: Success (persist the session) or Redirect (hand over to another story).
*/
package domain

/*
Package ports defines the driven ports (interfaces) of the tick story orchestrator.

These interfaces decouple the processing core from the outside world: connectors
that deliver answers, business handlers, story catalogs and session storage.

# Key Interfaces

  - Sender: dispatches answers to the connector layer.
  - ActionHandlers: invokes the business logic attached to actions.
  - UnknownHandler: decides what to do when an unknown intent is detected.
  - StoryOracle / StoryCatalog: resolve the stories referenced by redirects.
  - SessionStore: persists sessions between turns.
  - DistributedLocker: serializes access to a session across replicas.
*/
package ports

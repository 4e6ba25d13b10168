/*
Package ports defines the driven and driving ports (interfaces) of the Tendril engine.

These interfaces decouple dialogue hosting from external implementations, allowing
sessions to work with various storage backends and to be served over HTTP or MCP.

# Key Interfaces

  - TranscriptStore: Responsible for persisting and loading dialogue transcripts.
  - DistributedLocker: Provides distributed locking for handling concurrent dialogue access.
  - DialogueService: The operations adapters expose (create, turn, snapshot, ...).
*/
package ports

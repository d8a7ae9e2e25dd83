// Package api contains the core building blocks used by the graflow
// engine. It defines the graph model, the task and backend-config
// inputs, the run result, and the observer contract for telemetry.
//
// Most users interact with the higher-level graflow package, which
// re-exports selected types and helpers from this package. The api
// package is intended for advanced use cases, custom integrations, or
// contributors extending the engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Graphs: typed nodes connected by data and execution edges
//   - Tasks: the concrete work item a run executes against
//   - Backend configs: connection/auth settings for outbound calls
//   - Observers and execution events
//
// # Graphs
//
// A Graph is the static workflow definition produced by the visual
// editor: Nodes carry a NodeType and type-specific NodeData, Edges
// connect named ports (handles) on those nodes. Edges marked as
// execution links are control flow; all other edges copy data from a
// source port to a target port once the source node has finished.
//
// Graphs are plain data and are consumed verbatim as JSON; they are
// immutable during a run.
//
// # Ports
//
// Ports are addressed by a string naming convention ("attr-subject",
// "output-status", "body-amount"). The engine resolves a port's value
// through a fixed precedence order per node type, so every node can
// expose several logical outputs without a shared schema.
//
// # Observability
//
// The Observer interface receives run, node, data-transfer and API
// call lifecycle callbacks. Ready-made implementations cover logging
// (log/slog), in-memory metrics, fan-out composition, and a no-op
// default. The telemetry package adds a bounded asynchronous recorder
// that converts callbacks into flat ExecutionEvents for an EventSink,
// masking secrets on the way out.
//
// # Usage
//
// Most applications should start from the graflow package, using the
// GraphBuilder and the Engine constructor provided there. See the
// package documentation and example tests there for end-to-end usage.
package api

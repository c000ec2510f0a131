// Package sim provides the execution engine for QoP-ML models.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - host.go: Host state (variables, status, scheduler, epoch bookkeeping)
//   - executor.go: the executor chain and one host turn
//   - simulator.go: the step/epoch loop and infinite-loop detection
//
// # Architecture
//
// The sim package holds the mutable run state; value types and services live
// in sub-packages:
//   - sim/model/: expressions, instructions, equations and error types
//   - sim/equation/: term rewriting (Reducer) and equation validation
//   - sim/expression/: variable population and condition checks
//   - sim/routing/: shortest paths over channel topologies
//   - sim/metrics/: cost records of function calls
//   - sim/trace/: execution trace recording
//   - sim/builder/: model files and environment construction
//
// # Key Types
//
//   - Scheduler: picks the instruction context a host runs next (fifo, rr)
//   - InstructionsContext: a stack of instruction lists with one cursor
//   - Channel: buffered or synchronous message medium with pending requests
//   - InstructionExecutor: one member of the executor chain
//   - Hook: analysis code attached to lifecycle points
//
// A host turn executes instructions of the host's current context until one
// consumes CPU. Turns rotate round robin over unfinished hosts; an epoch ends
// once every host had as many turns as its scheduler has contexts.
package sim

/*
Package domain contains the shared vocabulary of the tendril engine.

It defines the identifiers, constraint levels, comparison qualifiers and
merge modes used by the node graph, the structured error taxonomy that
carries repair suggestions from one dialogue turn to the next, and the
lifecycle hooks used for observability. This package is kept free of
I/O so that every other package can depend on it.

# Key Entities

  - NodeID: Index of a node inside a dialogue arena.
  - Level: Constraint level of a node (object, query, partial).
  - Qualifier: Comparison operator delegated to comparable node types.
  - MergeMode: How a revise operation combines old and new subgraphs.
  - Error: Structured failure with hints and suggested P-expressions.
*/
package domain

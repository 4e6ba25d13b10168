/*
Package graph is the dialogue engine: a typed node graph held in the
arena of a Dialog, evaluated bottom-up and revised across turns.

Each turn parses a P-expression, constructs its nodes, transforms and
evaluates them, and pushes the root onto the goal stack. Later turns
reach back into earlier goals with refer and change them with revise,
which copies the path to the edited node and leaves the rest shared.

Node types plug in through a Registry. Every type implements Behavior;
optional capabilities (Comparer, Matcher, Merger, Transformer,
FallbackSearcher, ExceptionAbsorber, ...) are discovered by type
assertion.
*/
package graph

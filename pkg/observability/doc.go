/*
Package observability provides tools for monitoring the Tendril engine.

Everything here is expressed as domain.LifecycleHooks: Prometheus metrics
(Metrics.Hooks) and structured audit logging (LogHooks). Hooks compose with
LifecycleHooks.Merge and are installed with tendril.WithLifecycleHooks.
*/
package observability

/*
Package observability turns session lifecycle hooks into metrics and structured logs.

Metrics registers Prometheus collectors and exposes hooks that count state transitions,
resolved chains and gaps, and time alignment searches. LoggingHooks writes the same
events to a slog logger. Combine fans one event out to several hook sets.
*/
package observability

/*
Package observability exposes Prometheus metrics for the wizard engine.

A nil *Metrics is valid and records nothing, so instrumented code never has to
check whether metrics were configured.
*/
package observability

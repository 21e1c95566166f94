// Package tracing integrates observability back-ends with the task runtime
// to provide distributed tracing information. All instrumentation lives in a
// separate package so applications that do not need tracing can leave it out.
package tracing

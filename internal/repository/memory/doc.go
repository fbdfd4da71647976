// Package memory provides in-memory repository implementations.
//
// They back the dev-mode server and the service test suites. Every store
// copies values in and out under its mutex, so a transition's field writes
// become visible to readers as a single unit and a racing second writer
// observes the already-updated status.
package memory

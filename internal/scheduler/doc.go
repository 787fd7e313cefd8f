// Package scheduler abstracts timers so the channel can run on wall-clock time
// in production and on virtual time in tests.
//
// Callbacks run on their own goroutine with System and synchronously inside
// Advance with Manual. Callers must not hold locks the callback needs.
package scheduler

// Package worker provides the single-goroutine job queue used to hand
// work off the USB notification path.
//
// Hot-plug notifications arrive on a goroutine the application does not
// control, and user callbacks must never run there: a callback that calls
// back into the device layer would otherwise re-enter it from its own
// notification thread. The Worker breaks that chain: the registry pushes
// the callback here and the notification goroutine returns immediately.
//
// A single worker goroutine also serialises callback execution, so user
// callbacks need no internal synchronisation of their own.
//
// # Usage
//
//	w := worker.New()
//	w.SetLogger(log)
//	w.Start(true)
//	defer w.Stop()
//
//	w.Push(func() { /* runs on the worker goroutine */ })
//
// # Shutdown semantics
//
// Stop waits for the in-flight batch and then discards anything still
// queued. Promptness of shutdown is traded for delivery guarantees; a
// caller that needs at-least-once delivery must arrange it above this
// package.
package worker

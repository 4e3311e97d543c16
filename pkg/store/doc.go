// Package store provides the subscribable values the binding layer is built
// on.
//
// A Readable delivers its current value to a new subscriber and then every
// later value. Stores created with a StartFunc are lazy: the producer starts
// when the first subscriber arrives and stops when the last one leaves, so a
// store that nobody observes holds no upstream subscriptions.
//
// Delivery guarantees:
//   - notifications from one store are serialized in FIFO order, including
//     Sets issued from inside a subscriber callback;
//   - no value is ever coalesced or deduplicated;
//   - a subscriber removed while a notification is in flight receives
//     nothing further.
//
// Combine implements combine-latest over two sources and Map derives a value
// per emission. FromChannel adapts a Go channel for callers that produce
// snapshots from another goroutine.
package store

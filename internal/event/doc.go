// Package event provides a synchronous pub-sub event bus used to observe the
// build-tree registry without coupling observers to it.
//
// # Event Types
//
// Event types follow the pattern "category.action":
//   - build.registered, project.registered
//   - lock.acquired, lock.released, lock.uncontrolled
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, outside the bus's own lock, and a panicking handler is
// recovered so it cannot stop delivery to the others. Publishers in this module
// never publish while holding the lock coordinator's internal mutex, so a
// handler may safely call back into the registry.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	id := bus.Subscribe(event.TypeLockAcquired, func(e event.Event) {
//	    acquired := e.(event.LockEvent)
//	    fmt.Println(acquired.Target)
//	})
//	defer bus.Unsubscribe(id)
package event

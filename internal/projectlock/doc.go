// Package projectlock arbitrates access to the mutable state of projects.
//
// A Coordinator hands out two kinds of lock: one per project, and one covering
// every project at once. Project locks on different projects are independent.
// The all-projects lock excludes every project lock and is excluded by any of
// them. All bookkeeping lives behind a single mutex; every release wakes every
// waiter, and each waiter re-checks its own condition.
//
// Locks are scoped: a lock is only ever held for the duration of a callback
// and is released however the callback exits, including by panic. Waiting is
// interruptible through the context passed in.
//
// The context handed to a callback records the locks held on that call chain.
// A nested request that could never be granted (the same project again, the
// all-projects lock while holding anything, or a project while holding all
// projects) fails immediately with a ReentrantLockError instead of blocking
// forever. Detection relies on the callback passing that context on: a nested
// request made with an outer context is not recognised and blocks forever on a
// project already held. Nested locks on distinct projects are allowed, and
// their ordering is up to the caller. Global priority never holds back such a
// nested request.
//
// AllowUncontrolledAccessToAnyProject runs a callback without taking any lock.
// It exists for callers that predate the lock discipline. Each use is logged at
// warning level and counted.
package projectlock

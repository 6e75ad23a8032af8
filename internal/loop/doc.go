// Package loop provides the single-goroutine event loop every authentication
// session runs on.
//
// All session state (strategy phases, the finished flag, subscriptions) is
// only touched from functions executed by the loop, so none of it needs a
// lock. Anything that may wait (a remote method call, a user prompt, a
// network round trip, opening the wallet) runs on its own goroutine through
// Async or a Queue and posts its continuation back with Post.
//
// Tests do not start Run. They inject events with Post and call Settle,
// which executes posted work on the calling goroutine until nothing is left
// queued or in flight.
package loop

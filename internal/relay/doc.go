// Package relay hands finished responses from background workers back to
// live websocket connections through Redis pub/sub.
//
// Each thread gets its own channel, chat_responses:<thread_id>. Delivery
// is at-most-once: a publish with no subscriber attached is lost, and a
// slow subscriber drops payloads rather than backpressuring the worker.
// Subscriptions are scoped to a context and torn down when it is
// cancelled.
package relay

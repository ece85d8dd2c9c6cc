// Package dispatch decides and performs delivery of notification records.
//
// For every (notification, recipient) pair the engine:
//
//  1. Persists the record. This always happens and is the durability
//     boundary: a store failure aborts delivery and nothing is pushed or
//     mailed.
//  2. Looks up the recipient's setting for the notification's category,
//     falling back to the category default when none is stored.
//  3. Publishes once to the recipient's topic when the web-app switch is on.
//  4. Sends one email when the email switch is on.
//
// Push and email are independent. A failure in one is logged and recorded in
// the Report; it never rolls back the stored record or suppresses the other
// channel.
//
// Group-scope records (tutorial group update and deletion) are persisted
// once by DeliverGroup and then decided per recipient.
//
// There is no deduplication. Delivering the same event twice stores two
// records and delivers twice.
//
// CONCURRENCY:
// Fan-out across recipients runs on an errgroup bounded by WithConcurrency.
// Each recipient writes only its own Report slot, so the order recipients
// are processed in is not observable.
package dispatch

// Package notification defines notification types, their titles and
// preference categories, and the factory that builds notification records
// from course events.
//
// Two closed tables live here:
//
//   - Type -> title: total and injective. Every type has exactly one title and
//     no two types share one. The store relies on this to round-trip types
//     through their titles.
//   - Type -> Category -> default {WebApp, Email}: the compiled-in preference
//     used when a user has never touched a setting.
//
// The Factory only constructs values. It performs no I/O and never decides a
// delivery channel; that is the dispatch engine's job.
package notification

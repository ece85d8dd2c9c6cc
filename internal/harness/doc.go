// Package harness runs notification scenarios end to end.
//
// A scenario describes a small course world, the users' stored settings and
// a list of events. The harness replays the events through the real
// notifier, dispatch engine and SQLite store, records what was persisted,
// pushed and mailed, and evaluates assertions against the outcome.
//
// # Scenario Format
//
//	name: plagiarism_enabled
//	description: "Student with everything enabled gets push and mail"
//	world:
//	  users:
//	    - { id: 1, login: alice, name: Alice, email: alice@example.org }
//	  courses:
//	    - { id: 7, title: Software Engineering }
//	  exercises:
//	    - { id: 11, title: Patterns, course: 7 }
//	  plagiarism_cases:
//	    - { id: 1, exercise: 11, student: 1 }
//	settings:
//	  - { user: 1, category: notification.user-notification.new-plagiarism-case, webapp: true, email: true }
//	events:
//	  - event: new_plagiarism_case
//	    case: 1
//	assertions:
//	  - { type: notification_count, count: 1 }
//	  - { type: email_subject, user: 1, subject: "..." }
//
// # Assertion Types
//
//   - notification_count: number of stored records
//   - push_count: pushes, optionally for one user
//   - email_count: emails, optionally for one user
//   - email_subject: some email to user carries subject
//
// # Determinism
//
// Scenarios run against a fresh in-memory store with sequential record IDs
// ("n-0001", ...), a stepping clock starting at testutil.Epoch and a fan-out
// concurrency of one, so traces are stable enough for golden comparison.
package harness

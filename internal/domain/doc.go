// Package domain holds the read-only course entities the notification engine
// inspects.
//
// These types are deliberately shallow. They carry identity, the owning
// course, participant and membership sets, and the handful of typed fields
// needed to route a notification and render its text. Loading and saving them
// is the job of the surrounding application.
package domain

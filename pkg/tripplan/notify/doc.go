// Package notify contains event bus subscribers that turn planner events
// into user-facing state: per-user notifications, per-trip timelines,
// budget alerts and recommendation statistics.
//
// Each subscriber implements event.Handler and has a Subscribe helper that
// registers it on a bus under its canonical name.
package notify

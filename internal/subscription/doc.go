// Package subscription implements the Subscription Tracker.
//
// The tracked set is the single source of truth for which channels should be
// active after any reconnect. Rooms use join_room/leave_room; exams use the
// subscribe_exam/unsubscribe_exam aliases.
package subscription

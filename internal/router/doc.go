// Package router implements the Event Router.
//
// The router decodes inbound frames, lets interceptors consume control
// frames (pong), and fans every other event out to the consumers registered
// for its type, in registration order.
package router

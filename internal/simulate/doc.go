// Package simulate provides the deferred-delivery timers that stand in for a
// real chat transport during development and demos.
package simulate

// Package preview holds the auto-expiring queue of incoming-message previews
// surfaced while the chat widget is collapsed.
package preview

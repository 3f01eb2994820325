// Package httpapi exposes the conversation engine to the operator console
// and the embeddable widget over HTTP, SSE, and WebSocket.
package httpapi

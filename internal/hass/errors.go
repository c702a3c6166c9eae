package hass

import "errors"

// Domain errors for the hass package.
var (
	// ErrRequest is returned for any non-200 upstream response. Requests
	// are not retried; the failure surfaces to the caller verbatim.
	ErrRequest = errors.New("hass: request failed")

	// ErrAuth is returned when the access token is rejected, or lacks
	// the admin privileges the template endpoint needs.
	ErrAuth = errors.New("hass: authentication failed")

	// ErrWebSocket is returned when the WebSocket handshake or a
	// registry query over it fails.
	ErrWebSocket = errors.New("hass: websocket failure")
)

// None is the sentinel Home Assistant's template engine renders for
// absent values.
const None = "None"

package transport

import "github.com/coder/websocket"

// Custom websocket close codes used across the kit. These give peers a more
// specific reason for closure than the standard codes.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // peer connected with an unsupported subprotocol
	RegistrationError   websocket.StatusCode = 3001 // server-to-server registration failed
	ShuttingDownError   websocket.StatusCode = 3002 // server is closing down
)

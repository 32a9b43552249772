package api

import "github.com/smolpuddle/puddle/pkg/order"

// API response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// SubmitOrderResponse is the response from order submission
type SubmitOrderResponse struct {
	Status  string `json:"status"` // "accepted"
	Hash    string `json:"hash"`
	Message string `json:"message,omitempty"`
}

// OrderList wraps listing endpoints so the payload can grow fields.
type OrderList struct {
	Orders []order.Order `json:"orders"`
	Count  int           `json:"count"`
}

// CallData is a ready-to-send swap call for a wallet. R, S and V split a
// 65-byte order signature for contracts and tools that take it in parts.
type CallData struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	ChainID int64  `json:"chainId"`
	R       string `json:"r,omitempty"`
	S       string `json:"s,omitempty"`
	V       uint8  `json:"v,omitempty"`
}

// RefreshResponse reports the on-chain status that removed an order.
type RefreshResponse struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status string `json:"status"`
	Orders int    `json:"orders"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSMessage is the base structure for all WebSocket messages
type WSMessage struct {
	Type    string `json:"type"` // "order", "subscribed", "unsubscribed", "error"
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["orders", "orders:0x..."]
}

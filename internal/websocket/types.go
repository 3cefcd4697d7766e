package websocket

import (
	"time"

	"github.com/docshield/docshield/internal/masking"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeMasking represents a completed masking operation
	EventTypeMasking EventType = "masking_result"
	// EventTypeRequestLog represents a request logging event
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// MaskingEvent summarizes one masking operation. It carries counts only;
// original and masked text never leave the server through this channel.
type MaskingEvent struct {
	RequestID    string            `json:"request_id"`
	Operation    string            `json:"operation"`
	Filename     string            `json:"filename,omitempty"`
	ClientIP     string            `json:"client_ip"`
	Keywords     int               `json:"keywords"`
	Findings     []masking.Finding `json:"findings"`
	TotalMatches int               `json:"total_matches"`
	ProcessingMS float64           `json:"processing_ms"`
}

// RequestLogEvent represents a request logging event
type RequestLogEvent struct {
	RequestID    string        `json:"request_id"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	StatusCode   int           `json:"status_code"`
	ClientIP     string        `json:"client_ip"`
	UserAgent    string        `json:"user_agent,omitempty"`
	Duration     time.Duration `json:"duration"`
	RequestSize  int64         `json:"request_size"`
	ResponseSize int64         `json:"response_size"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalOperations  int64  `json:"total_operations"`
	CatalogSize      int    `json:"catalog_size"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
	Message  string `json:"message,omitempty"`
}

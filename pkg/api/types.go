package api

import "github.com/open-teleop/rover/pkg/journal"

// ErrorResponse is the body of every JSON error
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse answers GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// IPResponse answers GET /api/ip
type IPResponse struct {
	IP   string `json:"ip"`
	Mode string `json:"mode"`
}

// JournalResponse answers GET /api/journal
type JournalResponse struct {
	Entries []journal.Entry `json:"entries"`
}

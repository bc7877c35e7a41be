package dto

import "time"

// IssueCodeResponse is returned after issuing a one-time code.
// Code is only populated outside production; otherwise the code goes out of band.
type IssueCodeResponse struct {
	Identifier string    `json:"identifier"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Code       string    `json:"code,omitempty"`
}

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DisbursementErrorResponse carries the split of a failed or partial payout.
type DisbursementErrorResponse struct {
	Error     string `json:"error"`
	Status    string `json:"status"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

package domain

import "time"

// ExpenseStatusChanged is emitted whenever the orchestrator moves an expense between states.
type ExpenseStatusChanged struct {
	EventID      string        `json:"eventID"`
	ExpenseID    string        `json:"expenseID"`
	From         ExpenseStatus `json:"from"`
	To           ExpenseStatus `json:"to"`
	ActingUserID string        `json:"actingUserID"`
	Mode         Mode          `json:"mode"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	OccurredAt   time.Time     `json:"occurredAt"`
}

// CodeIssued hands a freshly issued one-time code to the notification service for delivery.
type CodeIssued struct {
	EventID    string    `json:"eventID"`
	Identifier string    `json:"identifier"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expiresAt"`
	OccurredAt time.Time `json:"occurredAt"`
}

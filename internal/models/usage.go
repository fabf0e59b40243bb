package models

import "time"

// UsageData tracks estimated token consumption against the trial limit.
type UsageData struct {
	TokensUsed      int        `json:"tokensUsed"`
	MessagesCount   int        `json:"messagesCount"`
	Email           string     `json:"email,omitempty"`
	TrialStartedAt  *time.Time `json:"trialStartedAt"`
	IsTrialActive   bool       `json:"isTrialActive"`
	TotalTokenLimit int        `json:"totalTokenLimit"`
	IsPaid          bool       `json:"isPaid,omitempty"`
}

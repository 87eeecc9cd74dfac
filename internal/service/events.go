package service

import "time"

// EmailSentEvent is published for every successful send.
type EmailSentEvent struct {
	RunID      string    `json:"run_id"`
	ProspectID int       `json:"prospect_id"`
	CampaignID int       `json:"campaign_id"`
	MessageID  string    `json:"message_id"`
	SentFrom   string    `json:"sent_from"`
	SentAt     time.Time `json:"sent_at"`
}

// DispatchCompletedEvent is published when a run finishes, including short-circuited runs.
type DispatchCompletedEvent struct {
	Result     DispatchResult `json:"result"`
	FinishedAt time.Time      `json:"finished_at"`
}

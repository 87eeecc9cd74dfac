// internal/model/email_record.go
package model

import "time"

const (
	DirectionOutbound = "outbound"

	EmailStatusSent = "sent"
)

// EmailRecord is the append-only log of emails. An outbound record for a prospect
// marks it as contacted for good.
type EmailRecord struct {
	ID         int       `db:"id" json:"id"`
	ProspectID int       `db:"prospect_id" json:"prospect_id"`
	CampaignID int       `db:"campaign_id" json:"campaign_id"`
	Direction  string    `db:"direction" json:"direction"`
	Subject    string    `db:"subject" json:"subject"`
	Body       string    `db:"body" json:"body"`
	SentAt     time.Time `db:"sent_at" json:"sent_at"`
	MessageID  string    `db:"message_id" json:"message_id"`
	SentFrom   string    `db:"sent_from" json:"sent_from"`
	Status     string    `db:"status" json:"status"`
}

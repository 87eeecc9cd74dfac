// internal/model/activity.go
package model

import "time"

const (
	ActivityEmailSent    = "email_sent"
	ActivityEmailFailed  = "email_failed"
	ActivityEmailBounced = "email_bounced"
)

type Activity struct {
	ID         int       `db:"id" json:"id"`
	ProspectID int       `db:"prospect_id" json:"prospect_id"`
	CampaignID *int      `db:"campaign_id" json:"campaign_id,omitempty"`
	Kind       string    `db:"kind" json:"kind"`
	Detail     string    `db:"detail" json:"detail"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

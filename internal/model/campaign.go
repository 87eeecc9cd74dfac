// internal/model/campaign.go
package model

import "time"

type Campaign struct {
	ID             int        `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	StrategyKey    string     `db:"strategy_key" json:"strategy_key"`
	Active         bool       `db:"active" json:"active"`
	DailyLimit     int        `db:"daily_limit" json:"daily_limit"`
	EmailsSent     int        `db:"emails_sent" json:"emails_sent"`
	PromptTemplate string     `db:"prompt_template" json:"prompt_template"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Remaining is the number of sends left before the campaign reaches its daily limit.
func (c Campaign) Remaining() int {
	if c.EmailsSent >= c.DailyLimit {
		return 0
	}
	return c.DailyLimit - c.EmailsSent
}

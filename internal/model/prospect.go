// internal/model/prospect.go
package model

import "time"

// Lifecycle stages the dispatch engine reads and writes.
const (
	StageNew       = "new"
	StageEnriched  = "enriched"
	StageQualified = "qualified"
	StageContacted = "contacted"
)

type Prospect struct {
	ID              int        `db:"id" json:"id"`
	Email           *string    `db:"email" json:"email,omitempty"`
	Source          string     `db:"source" json:"source"`
	Stage           string     `db:"stage" json:"stage"`
	Score           int        `db:"score" json:"score"`
	Country         string     `db:"country" json:"country"`
	Archived        bool       `db:"archived" json:"archived"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	Company         string     `db:"company" json:"company"`
	Title           string     `db:"title" json:"title"`
	LastContactedAt *time.Time `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
}

// Address returns the contact email, or "" when the prospect has none.
func (p Prospect) Address() string {
	if p.Email == nil {
		return ""
	}
	return *p.Email
}

// CandidateFilter narrows the prospects a run may consider.
type CandidateFilter struct {
	Stages            []string
	MinScore          int
	Limit             int
	MaxFailedAttempts int
}

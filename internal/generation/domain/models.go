// Package domain contains the generation record lifecycle model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// State is the lifecycle position of a generation record.
//
//	requested -> charging -> producing -> presented -> accepted
//	                                                -> rejected
//
// A rejected record is terminal but keeps its row: regeneration creates a
// brand-new record pointing back through SourceRecordID, so the lineage of
// free retries stays auditable. Accepted is terminal. A record may sit in
// presented indefinitely with no side effects.
type State string

const (
	StateRequested State = "requested"
	StateCharging  State = "charging"
	StateProducing State = "producing"
	StatePresented State = "presented"
	StateAccepted  State = "accepted"
	StateRejected  State = "rejected"
)

// GenerationRecord is one model invocation and its outcome. ChargedCredit
// is set exactly once at creation and never flips: charged records cost one
// credit and carry exactly one usage event; free regenerations carry none.
type GenerationRecord struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	ProjectID      snowflake.ID  `gorm:"not null;index" json:"project_id"`
	OwnerID        snowflake.ID  `gorm:"not null;index" json:"owner_id"`
	Prompt         string        `gorm:"type:text;not null" json:"prompt"`
	ModelID        string        `gorm:"type:text;not null" json:"model_id"`
	Output         *string       `gorm:"type:text" json:"output,omitempty"`
	TokensUsed     int64         `gorm:"not null;default:0" json:"tokens_used"`
	WordCount      int64         `gorm:"not null;default:0" json:"word_count"`
	State          State         `gorm:"type:text;not null;index" json:"state"`
	ChargedCredit  bool          `gorm:"not null;default:false" json:"charged_credit"`
	SourceRecordID *snowflake.ID `gorm:"index" json:"source_record_id,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (GenerationRecord) TableName() string { return "generation_records" }

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateRejected
}

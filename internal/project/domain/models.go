// Package domain contains persistence models for content projects.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ContentType classifies the kind of content a project produces.
type ContentType string

const (
	ContentTypeBlog    ContentType = "blog"
	ContentTypeEmail   ContentType = "email"
	ContentTypeSocial  ContentType = "social"
	ContentTypeAd      ContentType = "ad"
	ContentTypeArticle ContentType = "article"
	ContentTypeOther   ContentType = "other"
)

// Valid reports whether the content type is one of the supported values.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeBlog, ContentTypeEmail, ContentTypeSocial,
		ContentTypeAd, ContentTypeArticle, ContentTypeOther:
		return true
	default:
		return false
	}
}

// Project groups generations under one piece of work. Deleting a project
// cascades to its generation records; usage events are immutable history
// and survive the delete.
type Project struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID `gorm:"not null;index" json:"owner_id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	ContentType ContentType  `gorm:"type:text;not null" json:"content_type"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

package models

import (
	"time"

	"gorm.io/gorm"
)

// StoryRecord persists one story session. The full session snapshot is
// serialized into SessionJSON so a finished story can be re-opened as a
// storybook later without replaying generation.
type StoryRecord struct {
	ID          string         `gorm:"primaryKey;size:64" json:"id"`
	Title       string         `gorm:"size:255" json:"title"`
	ChildName   string         `gorm:"size:128" json:"child_name"`
	ChildAge    int            `json:"child_age"`
	Language    string         `gorm:"size:8" json:"language"`
	Mood        string         `gorm:"size:32" json:"mood"`
	Status      string         `gorm:"size:32;index" json:"status"` // "active", "ended"
	ChoiceCount int            `json:"choice_count"`
	SessionJSON string         `gorm:"type:mediumtext" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ChoiceAudit persists one applied choice, in order, for the parent recap
// view.
type ChoiceAudit struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	StoryID       string    `gorm:"index;size:64" json:"story_id"`
	ChoicePointID string    `gorm:"size:32" json:"choice_point_id"`
	OptionID      string    `gorm:"size:32" json:"option_id"`
	SegmentID     string    `gorm:"size:64" json:"segment_id"`
	Question      string    `gorm:"type:text" json:"question"`
	ChosenText    string    `gorm:"type:text" json:"chosen_text"`
	Trait         string    `gorm:"size:32" json:"trait"`
	CreatedAt     time.Time `json:"created_at"`
}

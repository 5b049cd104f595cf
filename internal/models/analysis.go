package models

import (
	"time"
)

// AnalysisRecord persists one drawing analysis result. The typed analysis is
// serialized into AnalysisJSON; Concern is broken out for filtering. ChildID
// is the same identity the memory store keys on; ChildName is display only.
type AnalysisRecord struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	ChildID      string    `gorm:"size:64;index" json:"child_id,omitempty"`
	ChildName    string    `gorm:"size:128" json:"child_name"`
	ChildAge     int       `json:"child_age"`
	ImageURL     string    `gorm:"size:512" json:"image_url"`
	Summary      string    `gorm:"type:text" json:"summary"`
	Concern      string    `gorm:"size:32;index" json:"concern"` // "" when none was flagged
	AnalysisJSON string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

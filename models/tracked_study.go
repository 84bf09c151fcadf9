package models

import "time"

// TrackedStudy ist eine Studie, die regelmäßig aus dem Register aktualisiert wird.
type TrackedStudy struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	NCTID     string    `json:"nct_id" gorm:"column:nct_id;uniqueIndex;not null"` // z.B. "NCT03741543"
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (TrackedStudy) TableName() string {
	return "tracked_studies"
}

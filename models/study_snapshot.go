package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudySnapshot speichert den zuletzt abgerufenen Stand einer Studie.
type StudySnapshot struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	NCTID         string `json:"nct_id" gorm:"column:nct_id;uniqueIndex;not null"`
	OrgStudyID    string `json:"org_study_id,omitempty"`
	BriefTitle    string `json:"brief_title" gorm:"type:text"`
	OfficialTitle string `json:"official_title,omitempty" gorm:"type:text"`
	Acronym       string `json:"acronym,omitempty"`

	Phase         string `json:"phase" gorm:"index"`
	StudyType     string `json:"study_type" gorm:"index"`
	OverallStatus string `json:"overall_status" gorm:"index"`
	WhyStopped    string `json:"why_stopped,omitempty" gorm:"type:text"`
	LeadSponsor   string `json:"lead_sponsor,omitempty" gorm:"index"`

	EnrollmentCount int    `json:"enrollment_count"`
	EnrollmentType  string `json:"enrollment_type,omitempty"`

	StartDate             *time.Time `json:"start_date,omitempty"`
	PrimaryCompletionDate *time.Time `json:"primary_completion_date,omitempty"`
	CompletionDate        *time.Time `json:"completion_date,omitempty"`
	VerificationDate      *time.Time `json:"verification_date,omitempty"`
	LastUpdatePosted      *time.Time `json:"last_update_posted,omitempty"`

	HasResults bool `json:"has_results"`

	// Listen als jsonb
	Conditions datatypes.JSON `json:"conditions" gorm:"type:jsonb"`
	Keywords   datatypes.JSON `json:"keywords" gorm:"type:jsonb"`
	Cities     datatypes.JSON `json:"cities" gorm:"type:jsonb"`
	Countries  datatypes.JSON `json:"countries" gorm:"type:jsonb"`
	MeshTerms  datatypes.JSON `json:"mesh_terms" gorm:"type:jsonb"`

	// Vollständige Zusammenfassung, wie sie die API ausliefert
	Summary datatypes.JSON `json:"summary" gorm:"type:jsonb"`
	RawXML  string         `json:"-" gorm:"type:text"`

	SyncedAt time.Time `json:"synced_at"`
}

// TableName gibt explizit den Tabellennamen an.
func (StudySnapshot) TableName() string {
	return "study_snapshots"
}

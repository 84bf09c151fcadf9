package models

import "time"

// ArchivedDocument ist ein Studiendokument (Protokoll, ICF, SAP), das nach S3 kopiert wurde.
type ArchivedDocument struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	NCTID        string `json:"nct_id" gorm:"column:nct_id;index;not null"`
	DocumentType string `json:"document_type"`
	DocumentDate string `json:"document_date,omitempty"`
	SourceURL    string `json:"source_url" gorm:"uniqueIndex;not null"`
	FileName     string `json:"file_name"`

	HasProtocol bool `json:"has_protocol"`
	HasICF      bool `json:"has_icf"`
	HasSAP      bool `json:"has_sap"`

	CloudStored  bool       `json:"cloud_stored"`
	NotFound     bool       `json:"not_found"`
	S3Link       string     `json:"s3_link,omitempty"`
	DownloadDate *time.Time `json:"download_date,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (ArchivedDocument) TableName() string {
	return "archived_documents"
}

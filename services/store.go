package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glow-mdsol/clinical-trials/models"
)

// Store kapselt die Datenbankzugriffe des SyncService.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *models.StudySnapshot) error
	TrackedStudies(ctx context.Context) ([]models.TrackedStudy, error)
	FindDocument(ctx context.Context, sourceURL string) (*models.ArchivedDocument, error)
	SaveDocument(ctx context.Context, doc *models.ArchivedDocument) error
}

// GormStore ist die PostgreSQL-Implementierung von Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// SaveSnapshot legt einen Snapshot an oder überschreibt den vorhandenen Stand derselben NCT-ID.
func (s *GormStore) SaveSnapshot(ctx context.Context, snap *models.StudySnapshot) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "nct_id"}},
		DoUpdates: clause.AssignmentColumns(snapshotColumns),
	}).Create(snap).Error
}

var snapshotColumns = []string{
	"updated_at", "org_study_id", "brief_title", "official_title", "acronym",
	"phase", "study_type", "overall_status", "why_stopped", "lead_sponsor",
	"enrollment_count", "enrollment_type",
	"start_date", "primary_completion_date", "completion_date", "verification_date", "last_update_posted",
	"has_results", "conditions", "keywords", "cities", "countries", "mesh_terms",
	"summary", "raw_xml", "synced_at",
}

func (s *GormStore) TrackedStudies(ctx context.Context) ([]models.TrackedStudy, error) {
	var tracked []models.TrackedStudy
	err := s.DB.WithContext(ctx).Order("nct_id").Find(&tracked).Error
	return tracked, err
}

// FindDocument liefert nil ohne Fehler, wenn das Dokument noch nicht archiviert wurde.
func (s *GormStore) FindDocument(ctx context.Context, sourceURL string) (*models.ArchivedDocument, error) {
	var doc models.ArchivedDocument
	err := s.DB.WithContext(ctx).Where("source_url = ?", sourceURL).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *GormStore) SaveDocument(ctx context.Context, doc *models.ArchivedDocument) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_url"}},
		UpdateAll: true,
	}).Create(doc).Error
}

// TrackStudies legt die übergebenen NCT-IDs als verfolgte Studien an; vorhandene bleiben unverändert.
func (s *GormStore) TrackStudies(ctx context.Context, nctIDs ...string) error {
	for _, id := range nctIDs {
		tracked := models.TrackedStudy{NCTID: id}
		if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tracked).Error; err != nil {
			return err
		}
	}
	return nil
}

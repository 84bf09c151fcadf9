package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/glow-mdsol/clinical-trials/config"
	"github.com/glow-mdsol/clinical-trials/models"
	"github.com/glow-mdsol/clinical-trials/providers"
	"github.com/glow-mdsol/clinical-trials/storage"
	"github.com/glow-mdsol/clinical-trials/study"
)

// CustomTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type CustomTransport struct {
	Transport http.RoundTripper
	UserAgent string
}

func (t *CustomTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.UserAgent)
	return t.Transport.RoundTrip(req)
}

// httpClient wird für Dokument-Downloads verwendet.
var httpClient = &http.Client{
	Timeout: 120 * time.Second,
	Transport: &CustomTransport{
		Transport: http.DefaultTransport,
		UserAgent: "clinical-trials-sync/1.0",
	},
}

// SyncService hält Studien-Snapshots und archivierte Dokumente auf dem Stand des Registers.
type SyncService struct {
	Config   *config.Config
	Store    Store
	Registry providers.Registry
	Uploader storage.Uploader
	Logger   *zap.Logger

	// HTTPClient lädt Dokumente herunter; nil verwendet den Standard-Client.
	HTTPClient *http.Client
}

// NewSyncService erstellt eine neue Instanz des SyncService. uploader darf nil sein,
// dann werden keine Dokumente archiviert.
func NewSyncService(cfg *config.Config, store Store, registry providers.Registry, uploader storage.Uploader, logger *zap.Logger) *SyncService {
	return &SyncService{
		Config:     cfg,
		Store:      store,
		Registry:   registry,
		Uploader:   uploader,
		Logger:     logger,
		HTTPClient: httpClient,
	}
}

// SyncResult fasst einen Abgleich zusammen.
type SyncResult struct {
	Snapshot          *models.StudySnapshot `json:"snapshot"`
	DocumentsArchived int                   `json:"documents_archived"`
}

// Load holt eine Studie aus dem Register, ohne sie zu speichern.
func (s *SyncService) Load(ctx context.Context, nctID string) (*study.Study, error) {
	return study.FromNCTID(ctx, nctID, s.Registry, s.studyOptions()...)
}

func (s *SyncService) studyOptions() []study.Option {
	return []study.Option{study.WithLogger(s.Logger), study.WithDocumentLister(s.Registry)}
}

// RefreshStudy holt eine Studie, speichert ihren Snapshot und archiviert bei Bedarf die Dokumente.
func (s *SyncService) RefreshStudy(ctx context.Context, nctID string) (*SyncResult, error) {
	log := s.Logger.With(zap.String("nct_id", nctID))
	log.Info("Starte Abgleich der Studie.")

	raw, err := s.Registry.GetStudy(ctx, nctID)
	if err != nil {
		return nil, err
	}
	st, err := study.FromDocument(raw, s.studyOptions()...)
	if err != nil {
		return nil, fmt.Errorf("study %s: %w", nctID, err)
	}
	snap, err := NewSnapshot(st, raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", nctID, err)
	}
	if err := s.Store.SaveSnapshot(ctx, snap); err != nil {
		log.Error("Snapshot konnte nicht gespeichert werden", zap.Error(err))
		return nil, err
	}

	result := &SyncResult{Snapshot: snap}
	if s.Config.ArchiveDocuments && s.Uploader != nil {
		count, err := s.ArchiveDocuments(ctx, st)
		if err != nil {
			// Der Snapshot ist gespeichert, Archivfehler brechen den Abgleich nicht ab.
			log.Warn("Archivierung der Dokumente fehlgeschlagen", zap.Error(err))
		}
		result.DocumentsArchived = count
	}
	log.Info("Abgleich der Studie abgeschlossen", zap.Int("documents_archived", result.DocumentsArchived))
	return result, nil
}

// RefreshAll gleicht alle verfolgten Studien parallel ab und gibt die Zahl der erfolgreichen Abgleiche
// und archivierten Dokumente zurück. Einzelne Fehler werden geloggt und übersprungen.
func (s *SyncService) RefreshAll(ctx context.Context) (synced int, archived int, err error) {
	tracked, err := s.Store.TrackedStudies(ctx)
	if err != nil {
		s.Logger.Error("Fehler beim Abrufen der verfolgten Studien", zap.Error(err))
		return 0, 0, err
	}

	workers := s.Config.SyncWorkers
	if workers < 1 {
		workers = 1
	}
	var syncedCount, archivedCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range tracked {
		nctID := t.NCTID
		g.Go(func() error {
			res, err := s.RefreshStudy(gctx, nctID)
			if err != nil {
				s.Logger.Error("Fehler beim Abgleich der Studie", zap.String("nct_id", nctID), zap.Error(err))
				return nil
			}
			syncedCount.Add(1)
			archivedCount.Add(int64(res.DocumentsArchived))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	s.Logger.Info("Abgleich aller Studien abgeschlossen",
		zap.Int("tracked", len(tracked)), zap.Int64("synced", syncedCount.Load()))
	return int(syncedCount.Load()), int(archivedCount.Load()), ctx.Err()
}

// ArchiveDocuments lädt alle bereitgestellten Dokumente einer Studie herunter und legt sie in S3 ab.
// Bereits archivierte Dokumente werden übersprungen.
func (s *SyncService) ArchiveDocuments(ctx context.Context, st *study.Study) (int, error) {
	if s.Uploader == nil {
		return 0, fmt.Errorf("no S3 uploader configured")
	}
	docs, err := st.ProvidedDocuments()
	if err != nil {
		return 0, err
	}
	log := s.Logger.With(zap.String("nct_id", st.NCTID()))

	tmp, err := os.MkdirTemp("", "ctdocs-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(tmp)

	archived := 0
	for _, doc := range docs {
		existing, err := s.Store.FindDocument(ctx, doc.URL)
		if err != nil {
			return archived, err
		}
		if existing != nil && existing.CloudStored {
			log.Debug("Dokument bereits archiviert, wird übersprungen.", zap.String("url", doc.URL))
			continue
		}
		if s.archiveDocument(ctx, log, st.NCTID(), doc, tmp) {
			archived++
		}
	}
	return archived, nil
}

// archiveDocument verarbeitet ein einzelnes Dokument; Download-Fehler werden am Datensatz vermerkt.
func (s *SyncService) archiveDocument(ctx context.Context, log *zap.Logger, nctID string, doc *study.ProvidedDocument, dir string) bool {
	log = log.With(zap.String("url", doc.URL))
	record := &models.ArchivedDocument{
		NCTID:        nctID,
		DocumentType: doc.Type,
		DocumentDate: doc.Date,
		SourceURL:    doc.URL,
		FileName:     doc.FileName(),
		HasProtocol:  doc.HasProtocol,
		HasICF:       doc.HasICF,
		HasSAP:       doc.HasSAP,
	}

	path, err := doc.Fetch(ctx, s.HTTPClient, dir)
	if err != nil {
		log.Warn("Download fehlgeschlagen", zap.Error(err))
		record.NotFound = true
		s.saveDocument(ctx, log, record)
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Heruntergeladene Datei nicht lesbar", zap.Error(err))
		return false
	}

	key := storage.DocumentKey(nctID, record.FileName)
	link, err := storage.UploadDocument(ctx, s.Uploader, s.Config.S3URL, s.Config.S3Bucket, key, data, contentType(record.FileName))
	if err != nil {
		log.Error("S3-Upload fehlgeschlagen", zap.Error(err))
		s.saveDocument(ctx, log, record)
		return false
	}
	now := time.Now()
	record.S3Link = link
	record.CloudStored = true
	record.DownloadDate = &now
	log.Info("Dokument erfolgreich nach S3 hochgeladen", zap.String("s3_link", link))
	return s.saveDocument(ctx, log, record)
}

func (s *SyncService) saveDocument(ctx context.Context, log *zap.Logger, record *models.ArchivedDocument) bool {
	if err := s.Store.SaveDocument(ctx, record); err != nil {
		log.Error("Dokument-Datensatz konnte nicht gespeichert werden", zap.Error(err))
		return false
	}
	return true
}

func contentType(fileName string) string {
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return "application/pdf"
	}
	return ""
}

// NewSnapshot überträgt eine Studie in ihr Datenbankmodell.
func NewSnapshot(st *study.Study, raw []byte) (*models.StudySnapshot, error) {
	summary, err := Summarize(st)
	if err != nil {
		return nil, err
	}
	snap := &models.StudySnapshot{
		NCTID:                 summary.NCTID,
		OrgStudyID:            summary.OrgStudyID,
		BriefTitle:            summary.BriefTitle,
		OfficialTitle:         summary.OfficialTitle,
		Acronym:               summary.Acronym,
		Phase:                 summary.Phase,
		StudyType:             summary.StudyType,
		OverallStatus:         summary.Status,
		WhyStopped:            summary.WhyStopped,
		StartDate:             summary.StartDate.Time(),
		PrimaryCompletionDate: summary.PrimaryCompletionDate.Time(),
		CompletionDate:        summary.CompletionDate.Time(),
		VerificationDate:      summary.VerificationDate.Time(),
		LastUpdatePosted:      summary.Trail.LastUpdatePosted.Time(),
		HasResults:            summary.HasResults,
		RawXML:                string(raw),
		SyncedAt:              time.Now(),
	}
	if summary.Sponsor != nil {
		snap.LeadSponsor = summary.Sponsor.Agency
	}
	if summary.Enrollment != nil {
		snap.EnrollmentCount = summary.Enrollment.Count
		snap.EnrollmentType = summary.Enrollment.CountType
	}

	columns := []struct {
		dst *datatypes.JSON
		val any
	}{
		{&snap.Conditions, summary.Conditions},
		{&snap.Keywords, summary.Keywords},
		{&snap.Cities, summary.Cities},
		{&snap.Countries, summary.Countries},
		{&snap.MeshTerms, summary.MeshTerms},
		{&snap.Summary, summary},
	}
	for _, c := range columns {
		b, err := json.Marshal(c.val)
		if err != nil {
			return nil, err
		}
		*c.dst = datatypes.JSON(b)
	}
	return snap, nil
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/glow-mdsol/clinical-trials/config"
	"github.com/glow-mdsol/clinical-trials/models"
	"github.com/glow-mdsol/clinical-trials/providers/clinicaltrials"
	"github.com/glow-mdsol/clinical-trials/services"
	"github.com/glow-mdsol/clinical-trials/storage"
	"github.com/glow-mdsol/clinical-trials/study"
)

var (
	studiesSyncedCounter     prometheus.Counter
	documentsArchivedCounter prometheus.Counter
)

func init() {
	studiesSyncedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studies_synced_total",
			Help: "Total number of study snapshots refreshed from the registry.",
		},
	)
	documentsArchivedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "documents_archived_total",
			Help: "Total number of provided documents archived to S3.",
		},
	)
	prometheus.MustRegister(studiesSyncedCounter, documentsArchivedCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.TrackedStudy{}, &models.StudySnapshot{}, &models.ArchivedDocument{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	store := services.NewGormStore(db)
	if ids := cfg.TrackedNCTIDs(); len(ids) > 0 {
		if err := store.TrackStudies(context.Background(), ids...); err != nil {
			logging.Error("Seeding tracked studies failed", zap.Error(err))
		} else {
			logging.Info("Tracked studies seeded", zap.Strings("nct_ids", ids))
		}
	}

	// Setup Services
	registry := clinicaltrials.NewFetcher(&cfg.Registry, logging)
	var uploader storage.Uploader
	if cfg.ArchiveDocuments {
		s3Client, err := storage.NewS3Client(context.Background(), cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		uploader = s3Client
	}
	syncService := services.NewSyncService(cfg, store, registry, uploader, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupStudyRoutes(router, syncService, logging)
	setupSnapshotRoutes(router, db, syncService, logging)
	setupTrackedStudyRoutes(router, db, logging)

	// Setup Cron
	cronScheduler := cron.New()
	_, err = cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled refresh job...")
		runRefreshAll(context.Background(), syncService, logging)
	})
	if err != nil {
		logging.Fatal("Invalid cron schedule", zap.String("schedule", cfg.CronSchedule), zap.Error(err))
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func runRefreshAll(ctx context.Context, syncService *services.SyncService, log *zap.Logger) {
	synced, archived, err := syncService.RefreshAll(ctx)
	if err != nil {
		log.Error("Refresh job failed", zap.Error(err))
	}
	studiesSyncedCounter.Add(float64(synced))
	documentsArchivedCounter.Add(float64(archived))
	log.Info("Refresh job completed", zap.Int("synced", synced), zap.Int("documents_archived", archived))
}

// registryStatus übersetzt Fehler aus Register und Modell in HTTP-Statuscodes.
func registryStatus(err error) int {
	switch {
	case errors.Is(err, study.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, study.ErrRetrieval):
		return http.StatusBadGateway
	case errors.Is(err, study.ErrDefinitionInvalid), errors.Is(err, study.ErrCoercion):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// setupStudyRoutes liefert Live-Ansichten direkt aus dem Register.
func setupStudyRoutes(router *gin.Engine, syncService *services.SyncService, log *zap.Logger) {
	rg := router.Group("/studies/:nct_id")

	load := func(c *gin.Context) (*study.Study, bool) {
		nctID := strings.ToUpper(c.Param("nct_id"))
		st, err := syncService.Load(c.Request.Context(), nctID)
		if err != nil {
			log.Warn("Loading study failed", zap.String("nct_id", nctID), zap.Error(err))
			c.JSON(registryStatus(err), gin.H{"error": err.Error()})
			return nil, false
		}
		return st, true
	}

	rg.GET("", func(c *gin.Context) {
		st, ok := load(c)
		if !ok {
			return
		}
		summary, err := services.Summarize(st)
		if err != nil {
			c.JSON(registryStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	rg.GET("/eligibility", func(c *gin.Context) {
		st, ok := load(c)
		if !ok {
			return
		}
		e, err := services.SummarizeEligibility(st)
		if err != nil {
			c.JSON(registryStatus(err), gin.H{"error": err.Error()})
			return
		}
		if e == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "study has no eligibility section"})
			return
		}
		c.JSON(http.StatusOK, e)
	})

	rg.GET("/people", func(c *gin.Context) {
		st, ok := load(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, services.SummarizePeople(st))
	})

	rg.GET("/documents", func(c *gin.Context) {
		st, ok := load(c)
		if !ok {
			return
		}
		docs, err := st.StudyDocuments(c.Request.Context())
		if err != nil {
			c.JSON(registryStatus(err), gin.H{"error": err.Error()})
			return
		}
		provided, err := st.ProvidedDocuments()
		if err != nil {
			c.JSON(registryStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"nct_id":             st.NCTID(),
			"study_documents":    docs,
			"provided_documents": provided,
		})
	})
}

func setupSnapshotRoutes(router *gin.Engine, db *gorm.DB, syncService *services.SyncService, log *zap.Logger) {
	rg := router.Group("/snapshots")

	rg.GET("/", func(c *gin.Context) {
		query := db.Model(&models.StudySnapshot{}).Omit("raw_xml", "summary")
		if status := c.Query("status"); status != "" {
			query = query.Where("overall_status = ?", status)
		}
		if phase := c.Query("phase"); phase != "" {
			query = query.Where("phase = ?", phase)
		}
		if sponsor := c.Query("sponsor"); sponsor != "" {
			query = query.Where("lead_sponsor = ?", sponsor)
		}
		if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
			query = query.Limit(limit)
		}

		var snaps []models.StudySnapshot
		if err := query.Order("updated_at desc").Find(&snaps).Error; err != nil {
			log.Error("Database query for snapshots failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, snaps)
	})

	rg.GET("/:nct_id", func(c *gin.Context) {
		nctID := strings.ToUpper(c.Param("nct_id"))
		var snap models.StudySnapshot
		if err := db.Where("nct_id = ?", nctID).First(&snap).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "snapshot not found"})
				return
			}
			log.Error("DB error loading snapshot", zap.String("nct_id", nctID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	rg.GET("/:nct_id/documents", func(c *gin.Context) {
		nctID := strings.ToUpper(c.Param("nct_id"))
		var docs []models.ArchivedDocument
		if err := db.Where("nct_id = ?", nctID).Order("id").Find(&docs).Error; err != nil {
			log.Error("DB error loading archived documents", zap.String("nct_id", nctID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, docs)
	})

	rg.POST("/:nct_id/sync", func(c *gin.Context) {
		nctID := strings.ToUpper(c.Param("nct_id"))
		res, err := syncService.RefreshStudy(c.Request.Context(), nctID)
		if err != nil {
			c.JSON(registryStatus(err), gin.H{"error": err.Error()})
			return
		}
		studiesSyncedCounter.Inc()
		documentsArchivedCounter.Add(float64(res.DocumentsArchived))
		c.JSON(http.StatusOK, res)
	})

	rg.POST("/sync-all", func(c *gin.Context) {
		go runRefreshAll(context.Background(), syncService, log)
		c.JSON(http.StatusAccepted, gin.H{"message": "Refresh of all tracked studies triggered."})
	})
}

func setupTrackedStudyRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/tracked-studies")
	rg.POST("/", func(c *gin.Context) {
		var tracked models.TrackedStudy
		if err := c.ShouldBindJSON(&tracked); err != nil || strings.TrimSpace(tracked.NCTID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		tracked.NCTID = strings.ToUpper(strings.TrimSpace(tracked.NCTID))
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tracked).Error; err != nil {
			log.Error("Failed to track study", zap.String("nct_id", tracked.NCTID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to track study"})
			return
		}
		c.JSON(http.StatusCreated, tracked)
	})
	rg.GET("/", func(c *gin.Context) {
		var tracked []models.TrackedStudy
		if err := db.Order("nct_id").Find(&tracked).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, tracked)
	})
	rg.DELETE("/:nct_id", func(c *gin.Context) {
		nctID := strings.ToUpper(c.Param("nct_id"))
		if err := db.Where("nct_id = ?", nctID).Delete(&models.TrackedStudy{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

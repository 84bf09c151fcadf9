package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Registry enthält alles, was zum Abruf von Studien aus dem Register nötig ist.
// Die CLI lädt nur diesen Teil.
type Registry struct {
	RegistryBaseURL string        `envconfig:"REGISTRY_BASE_URL" default:"https://clinicaltrials.gov"`
	RegistryTimeout time.Duration `envconfig:"REGISTRY_TIMEOUT" default:"60s"`
	// Anfragen pro Sekunde an das Register
	RegistryRateLimit float64 `envconfig:"REGISTRY_RATE_LIMIT" default:"3"`
	RegistryMaxFails  uint32  `envconfig:"REGISTRY_MAX_FAILURES" default:"5"`

	DocumentDir string `envconfig:"DOCUMENT_DIR" default:"documents"`
}

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	Registry

	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`
	// Kommagetrennte NCT-IDs, die beim Start als verfolgte Studien angelegt werden
	TrackedStudies string `envconfig:"TRACKED_STUDIES"`
	SyncWorkers    int    `envconfig:"SYNC_WORKERS" default:"5"`

	ArchiveDocuments bool   `envconfig:"ARCHIVE_DOCUMENTS" default:"false"`
	S3Key            string `envconfig:"S3_KEY"`
	S3Secret         string `envconfig:"S3_SECRET"`
	S3URL            string `envconfig:"S3_URL"`
	S3Region         string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket         string `envconfig:"S3_BUCKET" default:"clinical-trials"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// TrackedNCTIDs zerlegt TRACKED_STUDIES in einzelne, bereinigte IDs.
func (c *Config) TrackedNCTIDs() []string {
	var ids []string
	for _, id := range strings.Split(c.TrackedStudies, ",") {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Validate prüft Abhängigkeiten zwischen Feldern, die envconfig nicht abbilden kann.
func (c *Config) Validate() error {
	if c.ArchiveDocuments && (c.S3Key == "" || c.S3Secret == "" || c.S3URL == "") {
		return fmt.Errorf("ARCHIVE_DOCUMENTS requires S3_KEY, S3_SECRET and S3_URL")
	}
	if c.SyncWorkers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be at least 1, got %d", c.SyncWorkers)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadRegistry lädt nur die Register-Einstellungen, ohne Datenbank oder S3.
func LoadRegistry() (*Registry, error) {
	_ = godotenv.Load()
	var r Registry
	err := envconfig.Process("", &r)
	return &r, err
}

package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// OpenAI-kompatibler Chat-Completions-Endpunkt für die Paper-Analyse
	AIBaseURL        string `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIAPIKey         string `envconfig:"AI_API_KEY"`
	AIModel          string `envconfig:"AI_MODEL" default:"gpt-4-turbo"`
	AITimeoutSeconds int    `envconfig:"AI_TIMEOUT_SECONDS" default:"120"`
	MaxPaperLength   int    `envconfig:"MAX_PAPER_LENGTH" default:"48000"`

	ArxivBaseURL  string `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`
	PubMedBaseURL string `envconfig:"PUBMED_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	PubMedAPIKey  string `envconfig:"PUBMED_API_KEY"`
	PubMedTool    string `envconfig:"PUBMED_TOOL" default:"paperbase"`
	PubMedEmail   string `envconfig:"PUBMED_EMAIL"`

	// Hintergrund-Verarbeitung
	WorkerCount     int `envconfig:"WORKER_COUNT" default:"4"`
	WorkerQueueSize int `envconfig:"WORKER_QUEUE_SIZE" default:"256"`
	TaskMaxRetries  int `envconfig:"TASK_MAX_RETRIES" default:"3"`

	// Nächtliche Neuberechnung der Zitations-Metriken
	MetricsCronSchedule string `envconfig:"METRICS_CRON_SCHEDULE" default:"0 3 * * *"`

	UploadMaxBytes int64 `envconfig:"UPLOAD_MAX_BYTES" default:"52428800"`

	S3Key    string `envconfig:"S3_KEY" required:"true"`
	S3Secret string `envconfig:"S3_SECRET" required:"true"`
	S3URL    string `envconfig:"S3_URL" required:"true"`
	S3Region string `envconfig:"S3_REGION" required:"true"`
	S3Bucket string `envconfig:"S3_BUCKET" required:"true"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

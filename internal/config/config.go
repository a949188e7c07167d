package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	AI            AIConfig         `json:"ai"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	Admin         AdminConfig      `json:"admin"`
	Archive       ArchiveConfig    `json:"archive"`
	WhatsApp      WhatsAppConfig   `json:"whatsapp"`
	CORSAllowlist []string         `json:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIProviderConfig struct {
	Provider      string      `json:"provider"`
	Data          interface{} `json:"data"`
	GenerateModel string      `json:"generate_model"`
	EmbedModel    string      `json:"embed_model"`
}

type AIConfig struct {
	Providers      []AIProviderConfig `json:"providers"`
	Timeout        int                `json:"timeout"`
	EmbedDimension int                `json:"embed_dimension"`
	MaxInputChars  int                `json:"max_input_chars"`
}

// RetrievalConfig carries the tuning knobs of the hybrid retrieval path.
// The fallback activation threshold drifted across revisions of the
// original service, so it is configuration here, not a constant.
type RetrievalConfig struct {
	TopK               int      `json:"top_k"`
	Threshold          float64  `json:"threshold"`
	FallbackActivation float64  `json:"fallback_activation"`
	KeywordScore       float64  `json:"keyword_score"`
	KeywordLimit       int      `json:"keyword_limit"`
	MinHybridResults   int      `json:"min_hybrid_results"`
	MaxChunkWords      int      `json:"max_chunk_words"`
	ChunkOverlapWords  int      `json:"chunk_overlap_words"`
	StopWords          []string `json:"stop_words"`
}

type AdminConfig struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	JWTSecret    string `json:"jwt_secret"`
	JWTTTLHours  int    `json:"jwt_ttl_hours"`
}

type ArchiveConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type WhatsAppConfig struct {
	PhoneID             string `json:"phone_id"`
	Token               string `json:"token"`
	VerifyToken         string `json:"verify_token"`
	AdminTimeoutMinutes int    `json:"admin_timeout_minutes"`
	SweepCron           string `json:"sweep_cron"`
	CatalogURL          string `json:"catalog_url"`
}

func (c WhatsAppConfig) Enabled() bool {
	return c.PhoneID != "" && c.Token != ""
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	// seeded with sentinels so an explicit 0 in the file is distinguishable
	// from an absent field
	var cfg Config
	cfg.Retrieval.Threshold = -1
	cfg.Retrieval.FallbackActivation = -1
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && (cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "") {
		return nil, fmt.Errorf("database.dsn or database host/user/db_name is required")
	}
	if len(cfg.AI.Providers) == 0 {
		return nil, fmt.Errorf("ai.providers is required")
	}
	hasEmbedder := false
	hasGenerator := false
	for i, p := range cfg.AI.Providers {
		if p.Provider == "" {
			return nil, fmt.Errorf("ai.providers[%d].provider is required", i)
		}
		if p.EmbedModel != "" {
			hasEmbedder = true
		}
		if p.GenerateModel != "" {
			hasGenerator = true
		}
	}
	if !hasEmbedder {
		return nil, fmt.Errorf("at least one ai provider needs an embed_model")
	}
	if !hasGenerator {
		return nil, fmt.Errorf("at least one ai provider needs a generate_model")
	}
	if cfg.Admin.Username == "" || cfg.Admin.PasswordHash == "" || cfg.Admin.JWTSecret == "" {
		return nil, fmt.Errorf("admin username/password_hash/jwt_secret are required")
	}
	if cfg.Admin.JWTTTLHours == 0 {
		cfg.Admin.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 1536
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 100000
	}
	applyRetrievalDefaults(&cfg.Retrieval)
	if cfg.WhatsApp.AdminTimeoutMinutes == 0 {
		cfg.WhatsApp.AdminTimeoutMinutes = 5
	}
	if cfg.WhatsApp.SweepCron == "" {
		cfg.WhatsApp.SweepCron = "* * * * *"
	}
	return &cfg, nil
}

func applyRetrievalDefaults(rc *RetrievalConfig) {
	if rc.TopK == 0 {
		rc.TopK = 6
	}
	if rc.Threshold < 0 {
		rc.Threshold = 0.72
	}
	if rc.FallbackActivation < 0 {
		rc.FallbackActivation = 0.5
	}
	if rc.KeywordScore == 0 {
		rc.KeywordScore = 0.51
	}
	if rc.KeywordLimit == 0 {
		rc.KeywordLimit = 5
	}
	if rc.MinHybridResults == 0 {
		rc.MinHybridResults = 6
	}
	if rc.MaxChunkWords == 0 {
		rc.MaxChunkWords = 180
	}
	if rc.ChunkOverlapWords == 0 {
		rc.ChunkOverlapWords = 40
	}
	if rc.ChunkOverlapWords >= rc.MaxChunkWords {
		rc.ChunkOverlapWords = rc.MaxChunkWords - 1
	}
	if len(rc.StopWords) == 0 {
		rc.StopWords = DefaultStopWords()
	}
}

// DefaultStopWords is a small set of Indonesian function words dropped
// before keyword search. Colloquial fillers are included because questions
// arrive straight from chat.
func DefaultStopWords() []string {
	return []string{
		"yang", "dan", "atau", "di", "ke", "dari", "untuk", "dengan",
		"pada", "ini", "itu", "apa", "apakah", "berapa", "bagaimana",
		"gimana", "kah", "ya", "dong", "sih", "deh", "aja", "saja",
		"mau", "bisa", "ada", "nya", "kak", "min", "ga", "gak", "tidak",
	}
}

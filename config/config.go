package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	Timezone           string
	DatabaseURI        string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for stats cache and token blacklist; empty host disables it
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Proof uploads
	UploadDir             string
	UploadBaseURL         string
	UploadMaxMB           int
	ProofRetentionMin     int
	ProofCleanIntervalMin int
	// Stats
	StatsCacheTTLSec int
	StatsFanout      int
	MetricsEnabled   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := Build(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Build resolves configuration with precedence config.json -> defaults -> environment.
func Build(jsonPath string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(jsonPath, &c); err != nil {
		return AppConfig{}, fmt.Errorf("read %s: %w", jsonPath, err)
	}
	applyDefaults(&c)
	if err := applyEnvOverrides(&c); err != nil {
		return AppConfig{}, err
	}
	if _, err := c.Location(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}

// Location resolves the group timezone used for every calendar day.
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RedisEnabled reports whether a Redis host is configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

// UploadMaxBytes is the proof size limit in bytes.
func (c AppConfig) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.Timezone = getString(app, "Timezone")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		out.MetricsEnabled = getBool(app, "MetricsEnabled")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if up, ok := raw["upload"].(map[string]any); ok {
		out.UploadDir = getString(up, "Dir")
		out.UploadBaseURL = getString(up, "BaseURL")
		out.UploadMaxMB = getInt(up, "MaxMB")
		out.ProofRetentionMin = getInt(up, "RetentionMin")
		out.ProofCleanIntervalMin = getInt(up, "CleanIntervalMin")
	}

	if st, ok := raw["stats"].(map[string]any); ok {
		out.StatsCacheTTLSec = getInt(st, "CacheTTLSec")
		out.StatsFanout = getInt(st, "Fanout")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Madrid"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 30
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "gymchallenge"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("static", "proofs")
	}
	if c.UploadBaseURL == "" {
		c.UploadBaseURL = "/static/proofs"
	}
	if c.UploadMaxMB == 0 {
		c.UploadMaxMB = 5
	}
	if c.ProofRetentionMin == 0 {
		c.ProofRetentionMin = 60
	}
	if c.ProofCleanIntervalMin == 0 {
		c.ProofCleanIntervalMin = 5
	}
	if c.StatsCacheTTLSec == 0 {
		c.StatsCacheTTLSec = 60
	}
	if c.StatsFanout == 0 {
		c.StatsFanout = 8
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	strs := map[string]*string{
		"APP_PORT":        &c.AppPort,
		"JWT_SECRET":      &c.JWTSecret,
		"TIMEZONE":        &c.Timezone,
		"GIN_MODE":        &c.GinMode,
		"GIN_PATH":        &c.GinPath,
		"DATABASE_URI":    &c.DatabaseURI,
		"DB_HOST":         &c.DBHost,
		"DB_PORT":         &c.DBPort,
		"DB_USER":         &c.DBUser,
		"DB_PASSWORD":     &c.DBPassword,
		"DB_NAME":         &c.DBName,
		"REDIS_HOST":      &c.RedisHost,
		"REDIS_PASSWORD":  &c.RedisPassword,
		"LOG_LEVEL":       &c.LogLevel,
		"LOG_PATH":        &c.LogPath,
		"UPLOAD_DIR":      &c.UploadDir,
		"UPLOAD_BASE_URL": &c.UploadBaseURL,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"RATE_LIMIT_PER_MINUTE":    &c.RateLimitPerMinute,
		"REDIS_PORT":               &c.RedisPort,
		"REDIS_DB":                 &c.RedisDB,
		"LOG_MAX_SIZE_MB":          &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":          &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":         &c.LogMaxAgeDays,
		"UPLOAD_MAX_MB":            &c.UploadMaxMB,
		"PROOF_RETENTION_MIN":      &c.ProofRetentionMin,
		"PROOF_CLEAN_INTERVAL_MIN": &c.ProofCleanIntervalMin,
		"STATS_CACHE_TTL_SEC":      &c.StatsCacheTTLSec,
		"STATS_FANOUT":             &c.StatsFanout,
	}
	for key, dst := range ints {
		v := getEnv(key, "")
		if v == "" {
			continue
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s=%s: %w", key, v, err)
		}
		*dst = i
	}

	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("METRICS_ENABLED", ""); v != "" {
		c.MetricsEnabled = v == "true"
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	return nil
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	S3        S3Config
	Log       LogConfig
	CORS      CORSConfig
	Scan      ScanConfig
	Assessor  AssessorConfig
	Publisher PublisherConfig

	// FallbackAssessor is tried when the primary assessor fails. It is
	// disabled when its endpoint is empty.
	FallbackAssessor AssessorConfig
}

// ScanConfig holds settings for the remote visual-document scan service.
type ScanConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	APIKey             string `mapstructure:"api_key"`
	Model              string `mapstructure:"model"`
	SubmitPath         string `mapstructure:"submit_path"`
	StatusPath         string `mapstructure:"status_path"`
	ResultPath         string `mapstructure:"result_path"`
	PollIntervalSecs   int    `mapstructure:"poll_interval_secs"`
	MaxWaitSecs        int    `mapstructure:"max_wait_secs"`
	FileIntervalSecs   int    `mapstructure:"file_interval_secs"`
	TimeoutSecs        int    `mapstructure:"timeout_secs"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	OutputDir          string `mapstructure:"output_dir"`
	Timezone           string `mapstructure:"timezone"`
	MaxFileSizeMB      int64  `mapstructure:"max_file_size_mb"`
}

// Location resolves the configured timezone, falling back to UTC.
func (s *ScanConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AssessorConfig holds settings for the vision-language risk assessor.
type AssessorConfig struct {
	Provider    string  `mapstructure:"provider"`
	Endpoint    string  `mapstructure:"endpoint"`
	APIKey      string  `mapstructure:"api_key"`
	Deployment  string  `mapstructure:"deployment"`
	APIVersion  string  `mapstructure:"api_version"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
}

// PublisherConfig holds settings for the social-media publisher.
type PublisherConfig struct {
	Provider    string `mapstructure:"provider"`
	Endpoint    string `mapstructure:"endpoint"`
	AccessToken string `mapstructure:"access_token"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds operator token signing settings.
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Issuer      string        `mapstructure:"issuer"`

	// Operators maps operator names to bcrypt password hashes.
	Operators map[string]string `mapstructure:"operators"`
}

// S3Config holds settings for mirroring scan artifacts to S3. Mirroring is
// disabled when Bucket is empty.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LogConfig holds logging settings. Level is "debug" or "info"; debug adds
// per-poll scan progress and gin's debug output.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Debug reports whether verbose logging is enabled.
func (l *LogConfig) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

// Load reads configuration from environment variables with the PERSONASHIELD_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PERSONASHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "personashield")
	v.SetDefault("db.password", "personashield_secret")
	v.SetDefault("db.name", "personashield_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 10)
	v.SetDefault("db.max_idle", 5)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.token_expiry", "12h")
	v.SetDefault("jwt.issuer", "personashield")
	v.SetDefault("jwt.operators", "")

	// S3 defaults
	v.SetDefault("s3.region", "ap-northeast-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.key_prefix", "scans/")

	// Log defaults
	v.SetDefault("log.level", "debug")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Scan defaults
	v.SetDefault("scan.base_url", "")
	v.SetDefault("scan.api_key", "")
	v.SetDefault("scan.model", "scan-std-model-v1-jp")
	v.SetDefault("scan.submit_path", "/genai-api/v1/visualDocuments/scanAsync")
	v.SetDefault("scan.status_path", "/genai-api/v1/visualDocuments/scanStatus")
	v.SetDefault("scan.result_path", "/genai-api/v1/visualDocuments/scanResults")
	v.SetDefault("scan.poll_interval_secs", 10)
	v.SetDefault("scan.max_wait_secs", 600)
	v.SetDefault("scan.file_interval_secs", 10)
	v.SetDefault("scan.timeout_secs", 60)
	v.SetDefault("scan.insecure_skip_verify", false)
	v.SetDefault("scan.output_dir", "./output")
	v.SetDefault("scan.timezone", "Asia/Tokyo")
	v.SetDefault("scan.max_file_size_mb", 20)

	// Assessor defaults
	v.SetDefault("assessor.provider", "azure")
	v.SetDefault("assessor.endpoint", "")
	v.SetDefault("assessor.api_key", "")
	v.SetDefault("assessor.deployment", "gpt-4o")
	v.SetDefault("assessor.api_version", "2024-12-01-preview")
	v.SetDefault("assessor.temperature", 1.0)
	v.SetDefault("assessor.max_tokens", 1000)
	v.SetDefault("assessor.timeout_secs", 120)

	// Fallback assessor defaults
	v.SetDefault("assessor_fallback.provider", "openai")
	v.SetDefault("assessor_fallback.endpoint", "")
	v.SetDefault("assessor_fallback.api_key", "")
	v.SetDefault("assessor_fallback.deployment", "gpt-4o")
	v.SetDefault("assessor_fallback.api_version", "2024-12-01-preview")
	v.SetDefault("assessor_fallback.temperature", 1.0)
	v.SetDefault("assessor_fallback.max_tokens", 1000)
	v.SetDefault("assessor_fallback.timeout_secs", 120)

	// Publisher defaults
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("publisher.endpoint", "https://api.twitter.com/2/tweets")
	v.SetDefault("publisher.access_token", "")
	v.SetDefault("publisher.timeout_secs", 30)

	// Bind environment variables explicitly for nested keys. Keys with more
	// than one name also accept the scan service's legacy variables.
	envBindings := map[string][]string{
		"server.port":                    {"PERSONASHIELD_SERVER_PORT"},
		"server.read_timeout":            {"PERSONASHIELD_SERVER_READ_TIMEOUT"},
		"server.write_timeout":           {"PERSONASHIELD_SERVER_WRITE_TIMEOUT"},
		"server.environment":             {"PERSONASHIELD_SERVER_ENVIRONMENT"},
		"db.host":                        {"PERSONASHIELD_DB_HOST"},
		"db.port":                        {"PERSONASHIELD_DB_PORT"},
		"db.user":                        {"PERSONASHIELD_DB_USER"},
		"db.password":                    {"PERSONASHIELD_DB_PASSWORD"},
		"db.name":                        {"PERSONASHIELD_DB_NAME"},
		"db.sslmode":                     {"PERSONASHIELD_DB_SSLMODE"},
		"db.max_open":                    {"PERSONASHIELD_DB_MAX_OPEN"},
		"db.max_idle":                    {"PERSONASHIELD_DB_MAX_IDLE"},
		"jwt.secret":                     {"PERSONASHIELD_JWT_SECRET"},
		"jwt.token_expiry":               {"PERSONASHIELD_JWT_TOKEN_EXPIRY"},
		"jwt.issuer":                     {"PERSONASHIELD_JWT_ISSUER"},
		"jwt.operators":                  {"PERSONASHIELD_JWT_OPERATORS"},
		"s3.region":                      {"PERSONASHIELD_S3_REGION"},
		"s3.bucket":                      {"PERSONASHIELD_S3_BUCKET"},
		"s3.endpoint":                    {"PERSONASHIELD_S3_ENDPOINT"},
		"s3.access_key":                  {"PERSONASHIELD_S3_ACCESS_KEY"},
		"s3.secret_key":                  {"PERSONASHIELD_S3_SECRET_KEY"},
		"s3.key_prefix":                  {"PERSONASHIELD_S3_KEY_PREFIX"},
		"log.level":                      {"PERSONASHIELD_LOG_LEVEL"},
		"cors.allowed_origins":           {"PERSONASHIELD_CORS_ALLOWED_ORIGINS"},
		"scan.base_url":                  {"PERSONASHIELD_SCAN_BASE_URL", "COTOMIAPI_ENDPOINT"},
		"scan.api_key":                   {"PERSONASHIELD_SCAN_API_KEY", "COTOMIAPI_API_KEY"},
		"scan.model":                     {"PERSONASHIELD_SCAN_MODEL"},
		"scan.submit_path":               {"PERSONASHIELD_SCAN_SUBMIT_PATH"},
		"scan.status_path":               {"PERSONASHIELD_SCAN_STATUS_PATH"},
		"scan.result_path":               {"PERSONASHIELD_SCAN_RESULT_PATH"},
		"scan.poll_interval_secs":        {"PERSONASHIELD_SCAN_POLL_INTERVAL_SECS"},
		"scan.max_wait_secs":             {"PERSONASHIELD_SCAN_MAX_WAIT_SECS"},
		"scan.file_interval_secs":        {"PERSONASHIELD_SCAN_FILE_INTERVAL_SECS"},
		"scan.timeout_secs":              {"PERSONASHIELD_SCAN_TIMEOUT_SECS"},
		"scan.insecure_skip_verify":      {"PERSONASHIELD_SCAN_INSECURE_SKIP_VERIFY"},
		"scan.output_dir":                {"PERSONASHIELD_SCAN_OUTPUT_DIR"},
		"scan.timezone":                  {"PERSONASHIELD_SCAN_TIMEZONE"},
		"scan.max_file_size_mb":          {"PERSONASHIELD_SCAN_MAX_FILE_SIZE_MB"},
		"assessor.provider":              {"PERSONASHIELD_ASSESSOR_PROVIDER"},
		"assessor.endpoint":              {"PERSONASHIELD_ASSESSOR_ENDPOINT", "COTOMIAPI_OAI_ENDPOINT"},
		"assessor.api_key":               {"PERSONASHIELD_ASSESSOR_API_KEY", "COTOMIAPI_API_KEY"},
		"assessor.deployment":            {"PERSONASHIELD_ASSESSOR_DEPLOYMENT"},
		"assessor.api_version":           {"PERSONASHIELD_ASSESSOR_API_VERSION"},
		"assessor.temperature":           {"PERSONASHIELD_ASSESSOR_TEMPERATURE"},
		"assessor.max_tokens":            {"PERSONASHIELD_ASSESSOR_MAX_TOKENS"},
		"assessor.timeout_secs":          {"PERSONASHIELD_ASSESSOR_TIMEOUT_SECS"},
		"assessor_fallback.provider":     {"PERSONASHIELD_ASSESSOR_FALLBACK_PROVIDER"},
		"assessor_fallback.endpoint":     {"PERSONASHIELD_ASSESSOR_FALLBACK_ENDPOINT"},
		"assessor_fallback.api_key":      {"PERSONASHIELD_ASSESSOR_FALLBACK_API_KEY"},
		"assessor_fallback.deployment":   {"PERSONASHIELD_ASSESSOR_FALLBACK_DEPLOYMENT"},
		"assessor_fallback.api_version":  {"PERSONASHIELD_ASSESSOR_FALLBACK_API_VERSION"},
		"assessor_fallback.temperature":  {"PERSONASHIELD_ASSESSOR_FALLBACK_TEMPERATURE"},
		"assessor_fallback.max_tokens":   {"PERSONASHIELD_ASSESSOR_FALLBACK_MAX_TOKENS"},
		"assessor_fallback.timeout_secs": {"PERSONASHIELD_ASSESSOR_FALLBACK_TIMEOUT_SECS"},
		"publisher.provider":             {"PERSONASHIELD_PUBLISHER_PROVIDER"},
		"publisher.endpoint":             {"PERSONASHIELD_PUBLISHER_ENDPOINT"},
		"publisher.access_token":         {"PERSONASHIELD_PUBLISHER_ACCESS_TOKEN"},
		"publisher.timeout_secs":         {"PERSONASHIELD_PUBLISHER_TIMEOUT_SECS"},
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	cfg := &Config{}

	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PERSONASHIELD_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:      v.GetString("jwt.secret"),
		TokenExpiry: v.GetDuration("jwt.token_expiry"),
		Issuer:      v.GetString("jwt.issuer"),
		Operators:   parseOperators(v.GetString("jwt.operators")),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		KeyPrefix: v.GetString("s3.key_prefix"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Scan = ScanConfig{
		BaseURL:            strings.TrimRight(v.GetString("scan.base_url"), "/"),
		APIKey:             v.GetString("scan.api_key"),
		Model:              v.GetString("scan.model"),
		SubmitPath:         v.GetString("scan.submit_path"),
		StatusPath:         v.GetString("scan.status_path"),
		ResultPath:         v.GetString("scan.result_path"),
		PollIntervalSecs:   v.GetInt("scan.poll_interval_secs"),
		MaxWaitSecs:        v.GetInt("scan.max_wait_secs"),
		FileIntervalSecs:   v.GetInt("scan.file_interval_secs"),
		TimeoutSecs:        v.GetInt("scan.timeout_secs"),
		InsecureSkipVerify: v.GetBool("scan.insecure_skip_verify"),
		OutputDir:          v.GetString("scan.output_dir"),
		Timezone:           v.GetString("scan.timezone"),
		MaxFileSizeMB:      v.GetInt64("scan.max_file_size_mb"),
	}
	if _, err := time.LoadLocation(cfg.Scan.Timezone); err != nil {
		return nil, fmt.Errorf("invalid scan.timezone %q: %w", cfg.Scan.Timezone, err)
	}

	cfg.Assessor = loadAssessor(v, "assessor")
	cfg.FallbackAssessor = loadAssessor(v, "assessor_fallback")

	cfg.Publisher = PublisherConfig{
		Provider:    v.GetString("publisher.provider"),
		Endpoint:    v.GetString("publisher.endpoint"),
		AccessToken: v.GetString("publisher.access_token"),
		TimeoutSecs: v.GetInt("publisher.timeout_secs"),
	}

	return cfg, nil
}

func loadAssessor(v *viper.Viper, prefix string) AssessorConfig {
	return AssessorConfig{
		Provider:    v.GetString(prefix + ".provider"),
		Endpoint:    strings.TrimRight(v.GetString(prefix+".endpoint"), "/"),
		APIKey:      v.GetString(prefix + ".api_key"),
		Deployment:  v.GetString(prefix + ".deployment"),
		APIVersion:  v.GetString(prefix + ".api_version"),
		Temperature: v.GetFloat64(prefix + ".temperature"),
		MaxTokens:   v.GetInt(prefix + ".max_tokens"),
		TimeoutSecs: v.GetInt(prefix + ".timeout_secs"),
	}
}

// parseOperators parses "name:bcrypt-hash" pairs separated by commas.
func parseOperators(raw string) map[string]string {
	operators := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, hash, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" || hash == "" {
			continue
		}
		operators[name] = hash
	}
	return operators
}

package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	FreshserviceDomain      string `yaml:"freshservice_domain"`
	FreshserviceAPIKey      string `yaml:"freshservice_api_key"`
	FreshserviceInsecureTLS bool   `yaml:"freshservice_insecure_tls"`

	GraphAccessToken string `yaml:"graph_access_token"`
	SenderEmail      string `yaml:"sender_email"`
	RecipientEmail   string `yaml:"recipient_email"`

	AnthropicAPIKey   string  `yaml:"anthropic_api_key"`
	ClaudeModel       string  `yaml:"claude_model"`
	ClaudeTemperature float64 `yaml:"claude_temperature"`
	WritingQuality    string  `yaml:"writing_quality"` // basic, realistic or polished

	CategoriesPath string `yaml:"categories_path"`
	GroupsPath     string `yaml:"groups_path"`

	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`

	SendDelaySeconds  int    `yaml:"send_delay_seconds"`
	VerifyWaitMinutes int    `yaml:"verify_wait_minutes"`
	VerifySchedule    string `yaml:"verify_schedule"` // 5-field cron, empty disables

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
}

func LoadConfig() Config {
	var cfg Config

	// .env first so yaml/env resolution below sees its values.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values.
	envOverride(&cfg.FreshserviceDomain, "FRESHSERVICE_DOMAIN")
	envOverride(&cfg.FreshserviceAPIKey, "FRESHSERVICE_API_KEY")
	envOverrideBool(&cfg.FreshserviceInsecureTLS, "FRESHSERVICE_INSECURE_TLS")
	envOverride(&cfg.GraphAccessToken, "GRAPH_ACCESS_TOKEN")
	envOverride(&cfg.SenderEmail, "SENDER_EMAIL")
	envOverride(&cfg.RecipientEmail, "RECIPIENT_EMAIL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.ClaudeModel, "CLAUDE_MODEL")
	envOverrideFloat(&cfg.ClaudeTemperature, "CLAUDE_TEMPERATURE")
	envOverride(&cfg.WritingQuality, "WRITING_QUALITY")
	envOverride(&cfg.CategoriesPath, "CATEGORIES_PATH")
	envOverride(&cfg.GroupsPath, "GROUPS_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverrideInt(&cfg.SendDelaySeconds, "SEND_DELAY_SECONDS")
	envOverrideInt(&cfg.VerifyWaitMinutes, "VERIFY_WAIT_MINUTES")
	envOverride(&cfg.VerifySchedule, "VERIFY_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")

	// Defaults
	if cfg.ClaudeModel == "" {
		cfg.ClaudeModel = defaultClaudeModel
	}
	if cfg.ClaudeTemperature == 0 {
		cfg.ClaudeTemperature = 0.85
	}
	if cfg.WritingQuality == "" {
		cfg.WritingQuality = "realistic"
	}
	if cfg.CategoriesPath == "" {
		cfg.CategoriesPath = "categories.csv"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./ticketgen.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.SendDelaySeconds == 0 {
		cfg.SendDelaySeconds = 10
	}
	if cfg.VerifyWaitMinutes == 0 {
		cfg.VerifyWaitMinutes = 15
	}

	// Validate required fields
	required := map[string]string{
		"freshservice_domain":  cfg.FreshserviceDomain,
		"freshservice_api_key": cfg.FreshserviceAPIKey,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml, .env or env var)", name)
		}
	}
	if len(cfg.FreshserviceAPIKey) < 10 {
		log.Fatalf("freshservice_api_key looks too short to be valid")
	}

	switch cfg.WritingQuality {
	case "basic", "realistic", "polished":
	default:
		log.Fatalf("writing_quality must be 'basic', 'realistic' or 'polished', got '%s'", cfg.WritingQuality)
	}
	if cfg.ClaudeTemperature < 0 || cfg.ClaudeTemperature > 1 {
		log.Fatalf("invalid claude_temperature '%f': must be between 0 and 1", cfg.ClaudeTemperature)
	}
	if cfg.SendDelaySeconds < 0 {
		log.Fatalf("invalid send_delay_seconds '%d': must be >= 0", cfg.SendDelaySeconds)
	}
	if cfg.GroupsPath != "" {
		if _, err := LoadGroupDirectory(cfg.GroupsPath); err != nil {
			log.Fatalf("invalid groups_path '%s': %v", cfg.GroupsPath, err)
		}
	}
	if cfg.SlackChannelID != "" && cfg.SlackBotToken == "" {
		log.Fatalf("slack_bot_token is required when slack_channel_id is set")
	}

	return cfg
}

// RequireSending validates the fields only the send path needs, so verify
// runs stay usable with a minimal config.
func (c Config) RequireSending() {
	required := map[string]string{
		"anthropic_api_key":  c.AnthropicAPIKey,
		"graph_access_token": c.GraphAccessToken,
		"sender_email":       c.SenderEmail,
		"recipient_email":    c.RecipientEmail,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set for sending", name)
		}
	}
	if !validEmailAddress(c.SenderEmail) {
		log.Fatalf("invalid sender_email '%s'", c.SenderEmail)
	}
	if !validEmailAddress(c.RecipientEmail) {
		log.Fatalf("invalid recipient_email '%s'", c.RecipientEmail)
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// GroupDirectory resolves the effective allow-list: the configured file
// when present, the compiled-in six groups otherwise.
func (c Config) GroupDirectory() *GroupDirectory {
	if c.GroupsPath != "" {
		dir, err := LoadGroupDirectory(c.GroupsPath)
		if err == nil {
			return dir
		}
		log.Printf("groups file unreadable, using built-in directory: %v", err)
	}
	return DefaultGroupDirectory()
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

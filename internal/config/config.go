package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Scale modes.
const (
	ScaleSimulation = "simulation"
	ScaleDevice     = "device"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Ledger    LedgerConfig
	Scale     ScaleConfig
	Printer   PrinterConfig
	Storage   StorageConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	AI        AIConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port      string
	LogLevel  string
	LogFormat string
}

// LedgerConfig holds accounting policy and ticket presentation options.
type LedgerConfig struct {
	DefaultTareKg float64
	TicketTitle   string
	TicketWidth   int
}

// ScaleConfig selects the weight reading strategy.
type ScaleConfig struct {
	Mode     string
	SimMinKg float64
	SimMaxKg float64
	SimSeed  uint64
}

// PrinterConfig describes the available output sinks.
type PrinterConfig struct {
	Addr          string
	SystemCommand string
	Timeout       time.Duration
}

// StorageConfig selects the snapshot backend and its keys.
type StorageConfig struct {
	Driver       string
	MongoURI     string
	DBName       string
	Collection   string
	ProvidersKey string
	SettingsKey  string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Export is disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used to
// deliver the daily digest and answer manager queries. Both are disabled when
// AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	ManagerID     string
	VerifyToken   string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Port:      getenvWithDefault("APP_PORT", "8080"),
			LogLevel:  getenvWithDefault("LOG_LEVEL", "info"),
			LogFormat: getenvWithDefault("LOG_FORMAT", "json"),
		},
		Ledger: LedgerConfig{
			DefaultTareKg: getFloat("LEDGER_DEFAULT_TARE_KG", 2.5, &errs),
			TicketTitle:   getenvWithDefault("LEDGER_TICKET_TITLE", "VOLAILLES"),
			TicketWidth:   getInt("LEDGER_TICKET_WIDTH", 32, &errs),
		},
		Scale: ScaleConfig{
			Mode:     getenvWithDefault("SCALE_MODE", ScaleSimulation),
			SimMinKg: getFloat("SCALE_SIM_MIN_KG", 20, &errs),
			SimMaxKg: getFloat("SCALE_SIM_MAX_KG", 30, &errs),
			SimSeed:  uint64(getInt("SCALE_SIM_SEED", int(time.Now().UnixNano()&0x7fffffff), &errs)),
		},
		Printer: PrinterConfig{
			Addr:          os.Getenv("PRINTER_ADDR"),
			SystemCommand: getenvWithDefault("PRINTER_SYSTEM_COMMAND", "lp"),
			Timeout:       getDuration("PRINTER_TIMEOUT", 10*time.Second, &errs),
		},
		Storage: StorageConfig{
			Driver:       getenvWithDefault("STORAGE_DRIVER", StorageMongo),
			MongoURI:     os.Getenv("MONGODB_URI"),
			DBName:       getenvWithDefault("MONGODB_DB_NAME", "poultry"),
			Collection:   getenvWithDefault("MONGODB_COLLECTION", "ledger_kv"),
			ProvidersKey: getenvWithDefault("LEDGER_PROVIDERS_KEY", "poultry_providers"),
			SettingsKey:  getenvWithDefault("LEDGER_SETTINGS_KEY", "poultry_settings"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Africa/Conakry"),
		},
		AI: AIConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerID:     os.Getenv("WHATSAPP_MANAGER_ID"),
			VerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Ledger.DefaultTareKg <= 0 {
		return errors.New("LEDGER_DEFAULT_TARE_KG must be positive")
	}
	if c.Ledger.TicketWidth < 16 {
		return errors.New("LEDGER_TICKET_WIDTH must be at least 16")
	}

	switch c.Scale.Mode {
	case ScaleSimulation, ScaleDevice:
	default:
		return fmt.Errorf("SCALE_MODE %q is not supported", c.Scale.Mode)
	}
	if c.Scale.SimMinKg <= 0 || c.Scale.SimMaxKg <= c.Scale.SimMinKg {
		return errors.New("SCALE_SIM_MIN_KG must be positive and below SCALE_SIM_MAX_KG")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided for the mongo storage driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not supported", c.Storage.Driver)
	}
	if c.Storage.ProvidersKey == "" || c.Storage.SettingsKey == "" || c.Storage.ProvidersKey == c.Storage.SettingsKey {
		return errors.New("LEDGER_PROVIDERS_KEY and LEDGER_SETTINGS_KEY must be distinct and non-empty")
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_DATABASE_ID")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	if c.WhatsApp.AccessToken != "" {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided with WHATSAPP_TOKEN")
		case c.WhatsApp.ManagerID == "":
			return errors.New("WHATSAPP_MANAGER_ID must be provided with WHATSAPP_TOKEN")
		}
	}

	return nil
}

// SheetsEnabled reports whether spreadsheet export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.SpreadsheetID != ""
}

// WhatsAppEnabled reports whether digest delivery is configured.
func (c *Config) WhatsAppEnabled() bool {
	return c.WhatsApp.AccessToken != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

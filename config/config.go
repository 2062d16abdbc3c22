package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Default commute reference destinations.
const (
	DefaultReferenceAName    = "Science Park"
	DefaultReferenceAAddress = "Science Park 904, 1098 XH Amsterdam, Netherlands"
	DefaultReferenceBName    = "Flux"
	DefaultReferenceBAddress = "De Groene Loper 19, 5612 AP Eindhoven, Netherlands"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppName  string
	LogLevel string
	LogJSON  bool

	FluentHost string
	FluentPort int

	Email           string
	EmailPassword   string
	IMAPAddr        string
	MailFromFilter  string
	SMTPHost        string
	SMTPPort        int
	EmailRecipients []string

	MakelaarslandUsername string
	MakelaarslandPassword string
	MakelaarslandLoginURL string
	ChromeBin             string
	PageTimeout           time.Duration
	MaxRetries            int

	GoogleMapsAPIKey string
	ReferenceA       Destination
	ReferenceB       Destination

	ValuationBaseURL    string
	DemographicsBaseURL string
	HTTPTimeout         time.Duration

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioPhoneNumber  string
	WhatsAppRecipients []string

	SiteDir     string
	SiteBaseURL string
	GitPush     bool
	LedgerPath  string
	PreviewAddr string

	Store            string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	PollInterval time.Duration
	PollBackoff  time.Duration
}

// Destination is a named commute target.
type Destination struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// fileOverlay is the optional YAML file named by CONFIG_FILE.
type fileOverlay struct {
	Commute struct {
		ReferenceA Destination `yaml:"reference_a"`
		ReferenceB Destination `yaml:"reference_b"`
	} `yaml:"commute"`
	Recipients struct {
		WhatsApp []string `yaml:"whatsapp"`
		Email    []string `yaml:"email"`
	} `yaml:"recipients"`
	Site struct {
		Dir     string `yaml:"dir"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"site"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		AppName:  getEnv("APP_NAME", "makelaarsland-notifier"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),

		FluentHost: getEnv("FLUENT_HOST", ""),
		FluentPort: getEnvInt("FLUENT_PORT", 24224),

		Email:           getEnv("EMAIL", ""),
		EmailPassword:   getEnv("EMAIL_PASSWORD", ""),
		IMAPAddr:        getEnv("IMAP_ADDR", "imap.gmail.com:993"),
		MailFromFilter:  getEnv("MAIL_FROM_FILTER", "info@makelaarsland.nl"),
		SMTPHost:        getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:        getEnvInt("SMTP_PORT", 465),
		EmailRecipients: getEnvList("EMAIL_RECIPIENTS"),

		MakelaarslandUsername: getEnv("MAKELAARSLAND_USERNAME", ""),
		MakelaarslandPassword: getEnv("MAKELAARSLAND_PASSWORD", ""),
		MakelaarslandLoginURL: getEnv("MAKELAARSLAND_LOGIN_URL", "https://mijn.makelaarsland.nl/inloggen"),
		ChromeBin:             getEnv("CHROME_BIN", ""),
		PageTimeout:           getEnvDuration("PAGE_TIMEOUT", 60*time.Second),
		MaxRetries:            getEnvInt("MAX_RETRIES", 2),

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
		ReferenceA: Destination{
			Name:    getEnv("REFERENCE_A_NAME", DefaultReferenceAName),
			Address: getEnv("REFERENCE_A_ADDRESS", DefaultReferenceAAddress),
		},
		ReferenceB: Destination{
			Name:    getEnv("REFERENCE_B_NAME", DefaultReferenceBName),
			Address: getEnv("REFERENCE_B_ADDRESS", DefaultReferenceBAddress),
		},

		ValuationBaseURL:    getEnv("VALUATION_BASE_URL", "https://walterliving.com/report/"),
		DemographicsBaseURL: getEnv("DEMOGRAPHICS_BASE_URL", "http://www.allochtonenmeter.nl/"),
		HTTPTimeout:         getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:  getEnv("TWILIO_PHONE_NUMBER", ""),
		WhatsAppRecipients: WhatsAppAddresses(getEnvList("WHATSAPP_RECIPIENTS")),

		SiteDir:     getEnv("SITE_DIR", "./makelaarsland-houses"),
		SiteBaseURL: getEnv("SITE_BASE_URL", "https://guozc12.github.io/makelaarsland-houses/"),
		GitPush:     getEnvBool("GIT_PUSH", false),
		LedgerPath:  getEnv("LEDGER_PATH", "./output/published.csv"),
		PreviewAddr: getEnv("PREVIEW_ADDR", ""),

		Store:            getEnv("STORE", "json"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "notifier"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "houses"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		PollInterval: getEnvDuration("POLL_INTERVAL", 10*time.Second),
		PollBackoff:  getEnvDuration("POLL_BACKOFF", time.Minute),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return c.applyYAML(raw)
}

func (c *Config) applyYAML(raw []byte) error {
	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}

	if overlay.Commute.ReferenceA.Address != "" {
		c.ReferenceA = overlay.Commute.ReferenceA
	}
	if overlay.Commute.ReferenceB.Address != "" {
		c.ReferenceB = overlay.Commute.ReferenceB
	}
	if len(overlay.Recipients.WhatsApp) > 0 {
		c.WhatsAppRecipients = WhatsAppAddresses(overlay.Recipients.WhatsApp)
	}
	if len(overlay.Recipients.Email) > 0 {
		c.EmailRecipients = overlay.Recipients.Email
	}
	if overlay.Site.Dir != "" {
		c.SiteDir = overlay.Site.Dir
	}
	if overlay.Site.BaseURL != "" {
		c.SiteBaseURL = overlay.Site.BaseURL
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// WhatsAppAddresses prefixes every number with "whatsapp:" unless it
// already has it.
func WhatsAppAddresses(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !strings.HasPrefix(n, "whatsapp:") {
			n = "whatsapp:" + n
		}
		out = append(out, n)
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

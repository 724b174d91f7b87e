// Package config builds runtime configuration from environment variables so
// main stays lean. Defaults suit local development; production overrides
// everything via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level runtime configuration.
type Config struct {
	Server       Server
	Database     Database
	Redis        Redis
	ERP          ERP
	Registration Registration
	Admin        Admin
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	AdminToken    string
	JWTSigningKey string
}

// Database configures the PostgreSQL connection.
type Database struct {
	URL string
}

// Redis configures the verification-token store connection.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ERP configures access to the employer HR system.
type ERP struct {
	BaseURL          string
	APIKey           string
	MockMode         bool
	MockEmployees    []MockEmployee
	RefreshInterval  time.Duration
	RequestTimeout   time.Duration
	MaxRetries       int
	BackoffBase      time.Duration
	FailureThreshold int
	BreakerCooldown  time.Duration
}

// MockEmployee is one entry of the static roster used when MockMode is on.
type MockEmployee struct {
	NationalID string
	FullName   string
	StaffID    string
	Department string
}

// Registration configures workflow policy knobs.
type Registration struct {
	NumberPrefix       string
	MinRejectReasonLen int
	TokenTTL           time.Duration
}

// Admin optionally seeds the first dashboard account at startup. There is
// no public signup; further accounts are provisioned by operators.
type Admin struct {
	BootstrapEmail    string
	BootstrapName     string
	BootstrapPassword string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("ALUMREG_ADDR", ":8080"),
			AdminToken:    envString("ALUMREG_ADMIN_TOKEN", ""),
			JWTSigningKey: envString("ALUMREG_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Database: Database{
			URL: envString("ALUMREG_DATABASE_URL", ""),
		},
		Redis: Redis{
			URL:          envString("ALUMREG_REDIS_URL", ""),
			PoolSize:     envInt("ALUMREG_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("ALUMREG_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("ALUMREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("ALUMREG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("ALUMREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		ERP: ERP{
			BaseURL:          envString("ALUMREG_ERP_BASE_URL", ""),
			APIKey:           envString("ALUMREG_ERP_API_KEY", ""),
			MockMode:         envBool("ALUMREG_ERP_MOCK_MODE", true),
			MockEmployees:    envMockEmployees("ALUMREG_ERP_MOCK_EMPLOYEES", defaultMockEmployees),
			RefreshInterval:  envDuration("ALUMREG_ERP_REFRESH_INTERVAL", 15*time.Minute),
			RequestTimeout:   envDuration("ALUMREG_ERP_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:       envInt("ALUMREG_ERP_MAX_RETRIES", 3),
			BackoffBase:      envDuration("ALUMREG_ERP_BACKOFF_BASE", 500*time.Millisecond),
			FailureThreshold: envInt("ALUMREG_ERP_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  envDuration("ALUMREG_ERP_BREAKER_COOLDOWN", 30*time.Second),
		},
		Registration: Registration{
			NumberPrefix:       envString("ALUMREG_NUMBER_PREFIX", "ALM"),
			MinRejectReasonLen: envInt("ALUMREG_MIN_REJECT_REASON_LEN", 10),
			TokenTTL:           envDuration("ALUMREG_VERIFY_TOKEN_TTL", 30*24*time.Hour),
		},
		Admin: Admin{
			BootstrapEmail:    envString("ALUMREG_BOOTSTRAP_ADMIN_EMAIL", ""),
			BootstrapName:     envString("ALUMREG_BOOTSTRAP_ADMIN_NAME", "Administrator"),
			BootstrapPassword: envString("ALUMREG_BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}
}

// defaultMockEmployees backs local development when no roster override is
// set, so mock-mode submissions have records to match against.
var defaultMockEmployees = []MockEmployee{
	{NationalID: "12345678", FullName: "Jane Wanjiku", StaffID: "00AB12C", Department: "Finance"},
	{NationalID: "87654321", FullName: "John Otieno", StaffID: "00CD34E", Department: "Information Technology"},
}

// envMockEmployees parses a roster of the form
// "id|name|staffId|department;id|name|staffId|department". Entries without at
// least an id and a name are skipped.
func envMockEmployees(key string, fallback []MockEmployee) []MockEmployee {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var roster []MockEmployee
	for _, entry := range strings.Split(v, ";") {
		fields := strings.Split(entry, "|")
		if len(fields) < 2 {
			continue
		}
		emp := MockEmployee{
			NationalID: strings.TrimSpace(fields[0]),
			FullName:   strings.TrimSpace(fields[1]),
		}
		if emp.NationalID == "" || emp.FullName == "" {
			continue
		}
		if len(fields) > 2 {
			emp.StaffID = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			emp.Department = strings.TrimSpace(fields[3])
		}
		roster = append(roster, emp)
	}
	if len(roster) == 0 {
		return fallback
	}
	return roster
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

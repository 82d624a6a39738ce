// Package config loads orderdash settings from the environment.
// A .env file in the working directory is read first when present, so
// credentials never have to live in source.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Account is one portal login. Immutable after Load.
type Account struct {
	// ID is the short code used in file names, e.g. "HN".
	ID string
	// Name is the label shown in reports, e.g. "Honduras".
	Name     string
	Username string
	Password string
}

// String never prints the password.
func (a Account) String() string {
	return fmt.Sprintf("%s (%s, user=%s)", a.Name, a.ID, a.Username)
}

// PortalConfig describes the back office being automated.
type PortalConfig struct {
	SignInURL   string
	OrdersURL   string
	OrdersLabel string

	// Logout signs out through the user menu after each account.
	// Every account already gets a fresh browser profile, so this is off by default.
	Logout bool

	// Cooldown is the minimum gap between two sign-ins.
	Cooldown time.Duration

	// StepTimeout bounds each condition wait (form visible, login settled, ...).
	StepTimeout time.Duration

	// ChromePath overrides Chrome/Chromium discovery.
	ChromePath string
}

// DownloadConfig controls where workbooks land and how long we wait for them.
// The extension is always download.DefaultExtension.
type DownloadConfig struct {
	Dir      string
	Prefix   string
	Timeout  time.Duration
	Interval time.Duration
	Settle   time.Duration

	// CleanBeforeSync removes every finalized workbook before a sync cycle.
	CleanBeforeSync bool
}

// ReportConfig controls workbook parsing.
type ReportConfig struct {
	HeaderRows int
	// Currency is the symbol used when printing amounts.
	Currency string

	// ReturnAmount, when set, replaces the amount of every order whose
	// shipment status contains ReturnMarker.
	ReturnAmount *decimal.Decimal
	ReturnMarker string
}

// AppConfig holds the whole configuration. Load it once at startup.
type AppConfig struct {
	Accounts []Account
	Portal   PortalConfig
	Download DownloadConfig
	Report   ReportConfig
	Debug    bool
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*AppConfig, error) {
	_ = godotenv.Load() // .env is optional

	accounts, err := loadAccounts(getEnv("ORDERDASH_ACCOUNTS", "HN:Honduras,SV:El Salvador"))
	if err != nil {
		return nil, err
	}

	report := ReportConfig{
		HeaderRows:   getEnvInt("ORDERDASH_HEADER_ROWS", 9),
		Currency:     getEnv("ORDERDASH_CURRENCY", "L"),
		ReturnMarker: getEnv("REPORT_RETURN_MARKER", "devuel"),
	}
	if raw := getEnv("REPORT_RETURN_AMOUNT", ""); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REPORT_RETURN_AMOUNT %q: %w", raw, err)
		}
		report.ReturnAmount = &amount
	}

	return &AppConfig{
		Accounts: accounts,
		Portal: PortalConfig{
			SignInURL:   getEnv("PORTAL_SIGNIN_URL", "https://smartcommerce.lat/sign-in"),
			OrdersURL:   getEnv("PORTAL_ORDERS_URL", "https://smartcommerce.lat/orders"),
			OrdersLabel: getEnv("PORTAL_ORDERS_LABEL", "Pedidos"),
			Logout:      getEnvBool("PORTAL_LOGOUT", false),
			Cooldown:    getEnvDuration("PORTAL_COOLDOWN", 5*time.Second),
			StepTimeout: getEnvDuration("PORTAL_STEP_TIMEOUT", 40*time.Second),
			ChromePath:  getEnv("CHROME_PATH", ""),
		},
		Download: DownloadConfig{
			Dir:             getEnv("ORDERDASH_DOWNLOAD_DIR", DefaultDownloadDir()),
			Prefix:          getEnv("ORDERDASH_FILE_PREFIX", "DATO_"),
			Timeout:         getEnvDuration("DOWNLOAD_TIMEOUT", 60*time.Second),
			Interval:        getEnvDuration("DOWNLOAD_INTERVAL", 2*time.Second),
			Settle:          getEnvDuration("DOWNLOAD_SETTLE", 4*time.Second),
			CleanBeforeSync: getEnvBool("ORDERDASH_CLEAN_BEFORE_SYNC", true),
		},
		Report: report,
	}, nil
}

// Validate reports accounts that cannot sign in.
func (c *AppConfig) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("no accounts configured (set ORDERDASH_ACCOUNTS)")
	}
	var missing []string
	for _, a := range c.Accounts {
		if a.Username == "" || a.Password == "" {
			missing = append(missing, a.ID)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials for %s (set ORDERDASH_<ID>_USER and ORDERDASH_<ID>_PASSWORD)", strings.Join(missing, ", "))
	}
	return nil
}

// AccountName maps an account id to its display name, falling back to the id.
func (c *AppConfig) AccountName(id string) string {
	for _, a := range c.Accounts {
		if strings.EqualFold(a.ID, id) {
			return a.Name
		}
	}
	return id
}

// DefaultDownloadDir is the OS temp dir on Linux and servers, and the user's
// Downloads folder on desktop systems.
func DefaultDownloadDir() string {
	switch runtime.GOOS {
	case "windows", "darwin":
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Downloads")
		}
	}
	return os.TempDir()
}

// loadAccounts parses "HN:Honduras,SV:El Salvador" and pulls credentials
// from ORDERDASH_<ID>_USER / ORDERDASH_<ID>_PASSWORD.
func loadAccounts(list string) ([]Account, error) {
	var accounts []Account
	seen := map[string]bool{}
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, name, _ := strings.Cut(item, ":")
		id = strings.ToUpper(strings.TrimSpace(id))
		name = strings.TrimSpace(name)
		if id == "" {
			return nil, fmt.Errorf("invalid account entry %q", item)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate account id %q", id)
		}
		seen[id] = true
		if name == "" {
			name = id
		}
		accounts = append(accounts, Account{
			ID:       id,
			Name:     name,
			Username: getEnv("ORDERDASH_"+id+"_USER", ""),
			Password: getEnv("ORDERDASH_"+id+"_PASSWORD", ""),
		})
	}
	return accounts, nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

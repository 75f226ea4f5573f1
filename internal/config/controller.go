package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DriverRaw      = "raw"
	DriverChromedp = "chromedp"
)

// ControllerConfig holds configuration for the TradeZero control API.
type ControllerConfig struct {
	CDPAddress string
	CDPPort    int

	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	PageURLFilter string
	EvalTimeout   time.Duration
	Driver        string

	LogLevel string
	LogFile  string

	SnapshotDir      string
	SnapshotMaxCount int
	JournalDir       string
	JournalMaxSizeMB int

	UserName       string
	Password       string
	HideAttributes []string
	HomeURL        string

	LoaderMaxAttempts  int
	LoaderPollInterval time.Duration
	LoaderSettleDelay  time.Duration

	LaunchBrowser     bool
	BrowserProfileDir string
	BrowserHeadless   bool

	WatchlistPath     string
	NtfyURL           string
	RelayPollInterval time.Duration
}

// LoadController reads controller configuration from environment variables
// and an optional .env file.
func LoadController() (*ControllerConfig, error) {
	loadDotEnv()

	cfg := &ControllerConfig{
		CDPAddress:         getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:            getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		BindAddr:           getEnvOrDefault("CONTROLLER_BIND_ADDR", "127.0.0.1:8288"),
		PortCandidates:     getEnvListOrDefault("CONTROLLER_PORT_CANDIDATES", []string{"127.0.0.1:8289", "127.0.0.1:8290", "127.0.0.1:8291"}),
		PortAutoFallback:   getEnvBoolOrDefault("CONTROLLER_PORT_AUTO_FALLBACK", true),
		PageURLFilter:      getEnvOrDefault("CONTROLLER_PAGE_URL_FILTER", "tradezeroweb"),
		EvalTimeout:        getEnvDurationMSOrDefault("CONTROLLER_EVAL_TIMEOUT_MS", 5*time.Second),
		Driver:             strings.ToLower(getEnvOrDefault("CONTROLLER_DRIVER", DriverRaw)),
		LogLevel:           strings.ToLower(getEnvOrDefault("CONTROLLER_LOG_LEVEL", "info")),
		LogFile:            getEnvOrDefault("CONTROLLER_LOG_FILE", "logs/tz_controller.log"),
		SnapshotDir:        getEnvOrDefault("SNAPSHOT_DIR", "./snapshots"),
		SnapshotMaxCount:   getEnvIntOrDefault("SNAPSHOT_MAX_COUNT", 200),
		JournalDir:         getEnvOrDefault("JOURNAL_DIR", "./journal"),
		JournalMaxSizeMB:   getEnvIntOrDefault("JOURNAL_MAX_FILE_SIZE_MB", 50),
		UserName:           getEnvOrDefault("TZ_USERNAME", ""),
		Password:           getEnvOrDefault("TZ_PASSWORD", ""),
		HideAttributes:     getEnvListOrDefault("TZ_HIDE_ATTRIBUTES", nil),
		HomeURL:            getEnvOrDefault("TZ_HOME_URL", "https://standard.tradezeroweb.us/"),
		LoaderMaxAttempts:  getEnvIntOrDefault("LOADER_MAX_ATTEMPTS", 300),
		LoaderPollInterval: getEnvDurationMSOrDefault("LOADER_POLL_INTERVAL_MS", 10*time.Millisecond),
		LoaderSettleDelay:  getEnvDurationMSOrDefault("LOADER_SETTLE_DELAY_MS", 40*time.Millisecond),
		LaunchBrowser:      getEnvBoolOrDefault("BROWSER_LAUNCH", false),
		BrowserProfileDir:  getEnvOrDefault("BROWSER_PROFILE_DIR", "./browser_profile"),
		BrowserHeadless:    getEnvBoolOrDefault("BROWSER_HEADLESS", false),
		WatchlistPath:      getEnvOrDefault("CONTROLLER_WATCHLIST_CONFIG", "./config/watchlist.yaml"),
		NtfyURL:            getEnvOrDefault("CONTROLLER_NTFY_URL", ""),
		RelayPollInterval:  getEnvDurationMSOrDefault("RELAY_POLL_INTERVAL_MS", time.Second),
	}
	if cfg.EvalTimeout < time.Second {
		cfg.EvalTimeout = time.Second
	}
	if cfg.LoaderMaxAttempts < 1 {
		cfg.LoaderMaxAttempts = 1
	}
	if cfg.LoaderPollInterval < time.Millisecond {
		cfg.LoaderPollInterval = time.Millisecond
	}
	if cfg.LoaderSettleDelay < time.Millisecond {
		cfg.LoaderSettleDelay = time.Millisecond
	}
	if cfg.RelayPollInterval < 100*time.Millisecond {
		cfg.RelayPollInterval = 100 * time.Millisecond
	}
	switch cfg.Driver {
	case DriverRaw, DriverChromedp:
	default:
		return nil, fmt.Errorf("controller config: CONTROLLER_DRIVER must be %q or %q; got %q", DriverRaw, DriverChromedp, cfg.Driver)
	}
	return cfg, nil
}

// ControllerCDPURL returns CDP endpoint URL for controller use.
func (c *ControllerConfig) ControllerCDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// HideAll reports whether TZ_HIDE_ATTRIBUTES asks for every account widget.
func (c *ControllerConfig) HideAll() bool {
	for _, a := range c.HideAttributes {
		if strings.EqualFold(a, "all") {
			return true
		}
	}
	return false
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for the event sharing service.
type Config struct {
	DataDir               string `json:"data_dir,omitempty"`
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	OwnerID               string `json:"owner_id,omitempty"`
	UTCOffsetMinutes      int    `json:"utc_offset_minutes,omitempty"`
	CallbackAddr          string `json:"callback_addr,omitempty"`
}

// Overrides carries command-line flag values. Empty strings mean "not set";
// the offset uses the string form so an explicit value always wins.
type Overrides struct {
	DataDir               string
	GoogleCredentialsPath string
	OwnerID               string
	UTCOffsetMinutes      string
	CallbackAddr          string
}

// LoadConfigFromFile loads configuration from a JSON file. Whether the file
// carried the UTC offset is reported separately, so an explicit zero offset
// (UTC) is distinguishable from an absent one.
func LoadConfigFromFile(path string) (*Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, false, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A second decode into a pointer field tells set-to-zero from unset.
	var raw struct {
		UTCOffsetMinutes *int `json:"utc_offset_minutes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, raw.UTCOffsetMinutes != nil, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file
// 4. Defaults
// Returns an error if any required value is missing.
func LoadConfig(configFile string, overrides Overrides) (*Config, error) {
	var config Config

	// The offset's zero value is a legal setting (UTC), so set-ness is
	// tracked across all three sources instead of testing the value.
	offsetSet := false

	// Step 1: Load from config file if provided
	if configFile != "" {
		fileConfig, fileOffsetSet, err := LoadConfigFromFile(configFile)
		if err != nil {
			return nil, err
		}
		config = *fileConfig
		offsetSet = fileOffsetSet
	}

	// Step 2: Override with environment variables
	if dataDir := os.Getenv("CHATCAL_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}
	if credsPath := os.Getenv("GOOGLE_CREDENTIALS_PATH"); credsPath != "" {
		config.GoogleCredentialsPath = credsPath
	}
	if ownerID := os.Getenv("CHATCAL_OWNER_ID"); ownerID != "" {
		config.OwnerID = ownerID
	}
	if offset := os.Getenv("CHATCAL_UTC_OFFSET_MINUTES"); offset != "" {
		parsed, err := strconv.Atoi(offset)
		if err != nil {
			return nil, fmt.Errorf("invalid CHATCAL_UTC_OFFSET_MINUTES value %q: %w", offset, err)
		}
		config.UTCOffsetMinutes = parsed
		offsetSet = true
	}
	if addr := os.Getenv("CHATCAL_CALLBACK_ADDR"); addr != "" {
		config.CallbackAddr = addr
	}

	// Step 3: Override with command-line flags (highest priority)
	if overrides.DataDir != "" {
		config.DataDir = overrides.DataDir
	}
	if overrides.GoogleCredentialsPath != "" {
		config.GoogleCredentialsPath = overrides.GoogleCredentialsPath
	}
	if overrides.OwnerID != "" {
		config.OwnerID = overrides.OwnerID
	}
	if overrides.UTCOffsetMinutes != "" {
		parsed, err := strconv.Atoi(overrides.UTCOffsetMinutes)
		if err != nil {
			return nil, fmt.Errorf("invalid --utc-offset-minutes value %q: %w", overrides.UTCOffsetMinutes, err)
		}
		config.UTCOffsetMinutes = parsed
		offsetSet = true
	}
	if overrides.CallbackAddr != "" {
		config.CallbackAddr = overrides.CallbackAddr
	}

	// Step 4: Apply defaults and validate required fields
	if config.DataDir == "" {
		return nil, fmt.Errorf("data_dir must be provided via --data-dir flag, CHATCAL_DATA_DIR environment variable, or config file")
	}

	if config.GoogleCredentialsPath == "" {
		return nil, fmt.Errorf("google_credentials_path must be provided via --google-credentials-path flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
	}

	if !offsetSet {
		// Events are announced in a single fixed offset, Pacific standard
		// time unless configured otherwise. Not a tz database lookup.
		config.UTCOffsetMinutes = -8 * 60
	}

	if config.CallbackAddr == "" {
		config.CallbackAddr = "127.0.0.1:8080"
	}

	return &config, nil
}

// Location returns the fixed-offset zone all shared events are expressed in.
func (c *Config) Location() *time.Location {
	// The sign comes from the full minute value; deriving it from the hour
	// part alone would mislabel sub-hour negative offsets like -30.
	sign := "+"
	if c.UTCOffsetMinutes < 0 {
		sign = "-"
	}
	minutes := abs(c.UTCOffsetMinutes)
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
	return time.FixedZone(name, c.UTCOffsetMinutes*60)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// SavedSettings is the on-disk form of the CLI settings file.
type SavedSettings struct {
	APIURL     string `json:"api_url"`
	AdminToken string `json:"admin_token,omitempty"`
}

// SettingSource names where a resolved setting was taken from.
type SettingSource string

const (
	SourceFlag    SettingSource = "flag"
	SourceEnv     SettingSource = "env"
	SourceSaved   SettingSource = "global_config"
	SourceDefault SettingSource = "default"
	SourceNone    SettingSource = "none"
)

const (
	settingsFolder = "agiai"
	settingsFile   = "config.json"
)

// Settings is the connection the CLI will use, with the origin of each value.
type Settings struct {
	APIURL     string
	APIURLFrom SettingSource
	Token      string
	TokenFrom  SettingSource
}

// HasToken reports whether an admin token was found anywhere.
func (s *Settings) HasToken() bool {
	return s.TokenFrom != SourceNone
}

var settingsPathFunc = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, settingsFolder, settingsFile), nil
}

// SettingsPath returns the location of the settings file.
func SettingsPath() (string, error) {
	return settingsPathFunc()
}

// LoadSettings reads the settings file. A missing file yields nil, nil.
func LoadSettings() (*SavedSettings, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var saved SavedSettings
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &saved, nil
}

// SaveSettings writes the settings file readable by the owner only. The API
// URL is validated and normalized first.
func SaveSettings(saved *SavedSettings) error {
	if saved == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	apiURL, err := normalizeAPIURL(saved.APIURL)
	if err != nil {
		return err
	}

	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(SavedSettings{APIURL: apiURL, AdminToken: saved.AdminToken}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RemoveSettings deletes the settings file if present.
func RemoveSettings() error {
	path, err := SettingsPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// ResolveSettings picks each value from the first place that sets it:
// flag, environment, settings file, then the built-in default. The token has
// no default and stays empty when unset.
func ResolveSettings(flagToken, flagURL string) (*Settings, error) {
	s := &Settings{TokenFrom: SourceNone}

	switch {
	case flagToken != "":
		s.Token, s.TokenFrom = flagToken, SourceFlag
	case os.Getenv(envAdminToken) != "":
		s.Token, s.TokenFrom = os.Getenv(envAdminToken), SourceEnv
	}
	switch {
	case flagURL != "":
		s.APIURL, s.APIURLFrom = flagURL, SourceFlag
	case os.Getenv(envAPIURL) != "":
		s.APIURL, s.APIURLFrom = os.Getenv(envAPIURL), SourceEnv
	}

	if s.Token == "" || s.APIURL == "" {
		saved, err := LoadSettings()
		if err != nil {
			return nil, err
		}
		if saved != nil {
			if s.Token == "" && saved.AdminToken != "" {
				s.Token, s.TokenFrom = saved.AdminToken, SourceSaved
			}
			if s.APIURL == "" && saved.APIURL != "" {
				s.APIURL, s.APIURLFrom = saved.APIURL, SourceSaved
			}
		}
	}

	if s.APIURL == "" {
		s.APIURL, s.APIURLFrom = defaultAPIURL, SourceDefault
	}
	apiURL, err := normalizeAPIURL(s.APIURL)
	if err != nil {
		return nil, fmt.Errorf("api url (%s): %w", s.APIURLFrom, err)
	}
	s.APIURL = apiURL
	return s, nil
}

// normalizeAPIURL accepts absolute http(s) URLs and strips trailing slashes.
func normalizeAPIURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultAPIURL, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid API URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid API URL %q: want http(s)://host[:port]", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

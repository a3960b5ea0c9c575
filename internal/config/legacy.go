package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// legacyUserFile is where earlier releases kept credentials.
const legacyUserFile = "user.json"

// LoadLegacyUser reads credentials from user.json in dir.
func LoadLegacyUser(dir string) (AsleepConfig, bool) {
	path := filepath.Join(dir, legacyUserFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is constructed from the config dir
	if err != nil {
		return AsleepConfig{}, false
	}

	var raw struct {
		UserID         string `json:"user_id"`
		AccessToken    string `json:"access_token"`
		RefreshToken   string `json:"refresh_token"`
		TokenExpiresAt string `json:"token_expires_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return AsleepConfig{}, false
	}
	if raw.AccessToken == "" && raw.UserID == "" {
		return AsleepConfig{}, false
	}

	return AsleepConfig{
		UserID:         raw.UserID,
		AccessToken:    raw.AccessToken,
		RefreshToken:   raw.RefreshToken,
		TokenExpiresAt: raw.TokenExpiresAt,
	}, true
}

// mergeCredentials fills empty fields of cur from legacy.
func mergeCredentials(cur, legacy AsleepConfig) AsleepConfig {
	if cur.UserID == "" {
		cur.UserID = legacy.UserID
	}
	if cur.AccessToken == "" {
		cur.AccessToken = legacy.AccessToken
	}
	if cur.RefreshToken == "" {
		cur.RefreshToken = legacy.RefreshToken
	}
	if cur.TokenExpiresAt == "" {
		cur.TokenExpiresAt = legacy.TokenExpiresAt
	}
	return cur
}

package cms_fields

import (
	"strconv"
	"time"
)

// Known setting keys.
const (
	SettingSiteTitle        = "site_title"
	SettingSiteDescription  = "site_description"
	SettingAuthorName       = "author_name"
	SettingAuthorBio        = "author_bio"
	SettingContactEmail     = "contact_email"
	SettingSocialGithub     = "social_github"
	SettingSocialTwitter    = "social_twitter"
	SettingSocialLinkedin   = "social_linkedin"
	SettingPostsPerPage     = "posts_per_page"
	SettingAnalyticsEnabled = "analytics_enabled"
	SettingContactEnabled   = "contact_enabled"
)

// Setting is one key/value row of site configuration editable from the dashboard.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultSettings are seeded on first migration.
var DefaultSettings = []Setting{
	{Key: SettingSiteTitle, Value: "My Portfolio", IsPublic: true},
	{Key: SettingSiteDescription, Value: "Projects and writing", IsPublic: true},
	{Key: SettingAuthorName, Value: "", IsPublic: true},
	{Key: SettingAuthorBio, Value: "", IsPublic: true},
	{Key: SettingContactEmail, Value: "", IsPublic: false},
	{Key: SettingSocialGithub, Value: "", IsPublic: true},
	{Key: SettingSocialTwitter, Value: "", IsPublic: true},
	{Key: SettingSocialLinkedin, Value: "", IsPublic: true},
	{Key: SettingPostsPerPage, Value: "10", IsPublic: true},
	{Key: SettingAnalyticsEnabled, Value: "true", IsPublic: false},
	{Key: SettingContactEnabled, Value: "true", IsPublic: true},
}

// Settings is a key/value view over the settings table.
type Settings map[string]string

func (s Settings) Bool(key string, def bool) bool {
	v, ok := s[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s Settings) Int(key string, def int) int {
	v, ok := s[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (s Settings) String(key, def string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return def
}

// IsPublicSetting reports whether an unknown key defaults to public. Only the
// seeded rows carry an explicit flag; keys added later from the dashboard stay private.
func IsPublicSetting(key string) bool {
	for _, d := range DefaultSettings {
		if d.Key == key {
			return d.IsPublic
		}
	}
	return false
}

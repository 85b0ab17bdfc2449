package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "/app/config.yaml"
	defaultSecretsPath     = "/app/secrets.yaml"
	defaultRenderedDBPath  = "/data/folio.db"
	systemLitestreamConfig = "/etc/litestream.yml"
)

// litestreamFile is the subset of litestream.yml folio fills in. Unknown replica keys are kept.
type litestreamFile struct {
	DBs []litestreamDB `yaml:"dbs"`
}

type litestreamDB struct {
	Path     string              `yaml:"path"`
	Replicas []litestreamReplica `yaml:"replicas,omitempty"`
}

type litestreamReplica struct {
	Type            string                 `yaml:"type"`
	Endpoint        string                 `yaml:"endpoint,omitempty"`
	AccessKeyID     string                 `yaml:"access-key-id,omitempty"`
	SecretAccessKey string                 `yaml:"secret-access-key,omitempty"`
	Extra           map[string]interface{} `yaml:",inline"`
}

// r2Credentials accepts both snake and kebab keys, whichever the secrets file uses.
type r2Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

func (c r2Credentials) complete() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// renderConfigFiles writes .db_path and, when replication is configured, litestream.yml
// next to config.yaml so the container entrypoint can restore and replicate the sqlite file.
func renderConfigFiles(explicitPath string) error {
	configPath := explicitPath
	if configPath == "" {
		configPath = firstExistingPath(defaultConfigPath, "./config.yaml")
	}
	if configPath == "" {
		return errors.New("config.yaml not found")
	}
	dir := filepath.Dir(configPath)

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var secretsData []byte
	if secretsPath := firstExistingPath(filepath.Join(dir, "secrets.yaml"), defaultSecretsPath); secretsPath != "" {
		if secretsData, err = decryptSopsFile(secretsPath); err != nil {
			return err
		}
	}
	return renderConfig(configData, secretsData, filepath.Join(dir, ".db_path"), litestreamOutputPath(dir))
}

func renderConfig(configData, secretsData []byte, dbPathOut, litestreamOut string) error {
	merged, err := mergeYAML(configData, secretsData)
	if err != nil {
		return err
	}

	var folio struct {
		DBPath string `yaml:"db_path"`
	}
	if err := decodeSection(merged[configSection], &folio); err != nil {
		return fmt.Errorf("decode %s section: %w", configSection, err)
	}
	if folio.DBPath == "" {
		folio.DBPath = defaultRenderedDBPath
	}
	if err := os.WriteFile(dbPathOut, []byte(folio.DBPath), 0600); err != nil {
		return fmt.Errorf("write db path: %w", err)
	}

	var litestream litestreamFile
	if err := decodeSection(merged["litestream"], &litestream); err != nil {
		return fmt.Errorf("decode litestream section: %w", err)
	}
	creds := r2FromConfig(merged)
	if len(litestream.DBs) == 0 || !creds.complete() {
		return nil
	}
	fillLitestream(&litestream, folio.DBPath, creds)

	payload, err := yaml.Marshal(litestream)
	if err != nil {
		return fmt.Errorf("encode litestream config: %w", err)
	}
	if err := os.WriteFile(litestreamOut, payload, 0600); err != nil {
		return fmt.Errorf("write litestream config: %w", err)
	}
	return nil
}

// fillLitestream points dbs without a path at the sqlite file and gives s3 replicas the r2
// credentials they do not set themselves.
func fillLitestream(f *litestreamFile, dbPath string, creds r2Credentials) {
	for i := range f.DBs {
		db := &f.DBs[i]
		if db.Path == "" {
			db.Path = dbPath
		}
		for j := range db.Replicas {
			r := &db.Replicas[j]
			if r.Type != "s3" {
				continue
			}
			if r.AccessKeyID == "" {
				r.AccessKeyID = creds.AccessKeyID
			}
			if r.SecretAccessKey == "" {
				r.SecretAccessKey = creds.SecretAccessKey
			}
			if r.Endpoint == "" {
				r.Endpoint = creds.Endpoint
			}
		}
	}
}

func r2FromConfig(merged map[string]interface{}) r2Credentials {
	section := getMap(merged, "cloudflare_r2")
	if section == nil {
		section = getMap(merged, "cloudflare")
	}
	return r2Credentials{
		AccessKeyID:     firstString(section, "access_key_id", "access-key-id"),
		SecretAccessKey: firstString(section, "secret_access_key", "secret-access-key"),
		Endpoint:        firstString(section, "endpoint"),
	}
}

// decodeSection converts a generic yaml subtree into dst. A missing section leaves dst zero.
func decodeSection(section interface{}, dst interface{}) error {
	if section == nil {
		return nil
	}
	raw, err := yaml.Marshal(section)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, dst)
}

func litestreamOutputPath(fallbackDir string) string {
	if os.Geteuid() == 0 {
		return systemLitestreamConfig
	}
	return filepath.Join(fallbackDir, "litestream.yml")
}

func firstExistingPath(paths ...string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func decryptSopsFile(path string) ([]byte, error) {
	output, err := exec.Command("sops", "-d", path).Output()
	if err != nil {
		return nil, fmt.Errorf("sops -d %s: %w", path, err)
	}
	return output, nil
}

// mergeConfig overlays override on base. Maps merge key by key; empty strings and empty
// lists in override keep the base value so a secrets file only has to carry what it sets.
func mergeConfig(base, override interface{}) interface{} {
	switch o := override.(type) {
	case nil:
		return base
	case map[string]interface{}:
		result := map[string]interface{}{}
		if b, ok := base.(map[string]interface{}); ok {
			for k, v := range b {
				result[k] = v
			}
		}
		for k, v := range o {
			result[k] = mergeConfig(result[k], v)
		}
		return result
	case []interface{}:
		if len(o) == 0 {
			return base
		}
	case string:
		if o == "" {
			return base
		}
	}
	return override
}

func getMap(source map[string]interface{}, key string) map[string]interface{} {
	m, _ := source[key].(map[string]interface{})
	return m
}

func firstString(source map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if text, ok := source[key].(string); ok && text != "" {
			return text
		}
	}
	return ""
}

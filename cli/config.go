package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adonese/folio/cms_fields"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const configSection = "folio"

// loadConfig reads config.yaml (the explicit path when given), merges the decrypted
// secrets.yaml over it and returns the folio section with defaults applied. Without any
// config file the defaults and env overrides are used as they are.
func loadConfig(explicitPath string) (cms_fields.FolioConfig, error) {
	configPath := explicitPath
	if configPath == "" {
		configPath = firstExistingPath(defaultConfigPath, "./config.yaml", "../config.yaml")
	}
	if configPath == "" {
		logrusLogger.Warn("config.yaml not found, running on defaults")
		return decodeConfig(nil, nil)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return cms_fields.FolioConfig{}, fmt.Errorf("read config: %w", err)
	}

	var secretsData []byte
	secretsPath := firstExistingPath(filepath.Join(filepath.Dir(configPath), "secrets.yaml"), defaultSecretsPath)
	if secretsPath != "" {
		secretsData, err = decryptSopsFile(secretsPath)
		if err != nil {
			return cms_fields.FolioConfig{}, err
		}
		logrusLogger.Printf("Loaded secrets from %s", secretsPath)
	}

	cfg, err := decodeConfig(configData, secretsData)
	if err != nil {
		return cms_fields.FolioConfig{}, err
	}
	logrusLogger.Printf("Loaded config from %s", configPath)
	return cfg, nil
}

// decodeConfig merges the two yaml documents and decodes the folio section.
func decodeConfig(configData, secretsData []byte) (cms_fields.FolioConfig, error) {
	var cfg cms_fields.FolioConfig

	merged, err := mergeYAML(configData, secretsData)
	if err != nil {
		return cfg, err
	}
	section := getMap(merged, configSection)
	if section == nil {
		section = map[string]interface{}{}
	}

	payload, err := json.Marshal(section)
	if err != nil {
		return cfg, fmt.Errorf("encode folio config: %w", err)
	}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return cfg, fmt.Errorf("decode folio config: %w", err)
	}
	cfg.Defaults()
	return cfg, nil
}

func mergeYAML(configData, secretsData []byte) (map[string]interface{}, error) {
	configMap := map[string]interface{}{}
	if len(configData) > 0 {
		if err := yaml.Unmarshal(configData, &configMap); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}
	secretsMap := map[string]interface{}{}
	if len(secretsData) > 0 {
		if err := yaml.Unmarshal(secretsData, &secretsMap); err != nil {
			return nil, fmt.Errorf("parse secrets yaml: %w", err)
		}
	}
	merged, ok := mergeConfig(configMap, secretsMap).(map[string]interface{})
	if !ok {
		return nil, errors.New("merged config is not a map")
	}
	return merged, nil
}

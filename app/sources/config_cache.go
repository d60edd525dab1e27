package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	RetryClassDefault    = "default"
	RetryClassAggressive = "aggressive"
)

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"` // Request URL template
	Settings ConfigSettings `yaml:"settings"`
	Quality  ConfigQuality  `yaml:"quality"`
}

type ConfigSettings struct {
	Enabled    bool   `yaml:"enabled"`
	Timeout    int    `yaml:"timeout"`     // seconds
	RetryClass string `yaml:"retry_class"` // default or aggressive
	APIKeyEnv  string `yaml:"api_key_env"` // environment variable holding the API key
}

// ConfigQuality configures the data-quality gate for this source's fields.
// A threshold of 0 leaves the field unmonitored.
type ConfigQuality struct {
	UsersRatingMaxNullPercent   float64 `yaml:"users_rating_max_null_percent"`
	CriticsRatingMaxNullPercent float64 `yaml:"critics_rating_max_null_percent"`
}

func (c *Config) APIKey() string {
	if c.Settings.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Settings.APIKeyEnv)
}

type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		sourceName := fileName[:len(fileName)-4] // Remove .yml extension

		config, err := cc.LoadConfig(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "source", sourceName,
			"enabled", config.Settings.Enabled, "retry_class", config.Settings.RetryClass)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(sourceName string) (*Config, error) {
	configFile := cc.getConfigFilePath(sourceName)
	sourceConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = sourceName

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(sourceName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", sourceName)
	}
	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sourceConfig Config
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sourceConfig.Settings.Timeout == 0 {
		sourceConfig.Settings.Timeout = 15
	}
	if sourceConfig.Settings.RetryClass == "" {
		sourceConfig.Settings.RetryClass = RetryClassDefault
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}

	if sourceConfig.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if sourceConfig.Settings.Enabled && sourceConfig.URL == "" {
		return fmt.Errorf("URL is required for enabled sources")
	}

	validRetryClasses := map[string]bool{
		RetryClassDefault:    true,
		RetryClassAggressive: true,
	}
	if !validRetryClasses[sourceConfig.Settings.RetryClass] {
		return fmt.Errorf("invalid retry class: %s", sourceConfig.Settings.RetryClass)
	}

	percentFields := map[string]float64{
		"users rating threshold":   sourceConfig.Quality.UsersRatingMaxNullPercent,
		"critics rating threshold": sourceConfig.Quality.CriticsRatingMaxNullPercent,
	}
	for fieldName, fieldValue := range percentFields {
		if fieldValue < 0 || fieldValue > 100 {
			return fmt.Errorf("%s must be between 0 and 100", fieldName)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(sourceName string) string {
	return filepath.Join(cc.sourcesDir, sourceName+".yml")
}

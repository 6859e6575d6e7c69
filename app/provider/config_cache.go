package provider

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	providersDir   string
	registry       *Registry
	defaultTimeout time.Duration
	cache          map[string]*Config
	mu             sync.RWMutex
}

func NewConfigCache(providersDir string, registry *Registry, defaultTimeout time.Duration) *ConfigCache {
	return &ConfigCache{
		providersDir:   providersDir,
		registry:       registry,
		defaultTimeout: defaultTimeout,
		cache:          make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.providersDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.providersDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		providerName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(providerName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Provider configuration loaded", "provider", providerName, "type", config.Type, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(providerName string) (*Config, error) {
	configFile := cc.getConfigFilePath(providerName)
	providerConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	providerConfig.Name = providerName

	if err := cc.validateConfig(providerConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[providerConfig.Name] = providerConfig

	return providerConfig, nil
}

func (cc *ConfigCache) GetConfig(providerName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	providerConfig, ok := cc.cache[providerName]
	if !ok {
		return nil, fmt.Errorf("provider config with name '%s' not found", providerName)
	}
	return providerConfig, nil
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

// GetEnabledConfigs returns enabled providers ordered by name, which fixes
// the order their articles enter the catalog.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs = append(enabledConfigs, v)
		}
	}
	sort.Slice(enabledConfigs, func(i, j int) bool {
		return enabledConfigs[i].Name < enabledConfigs[j].Name
	})
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

	var providerConfig Config
	if err := yaml.Unmarshal(data, &providerConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if providerConfig.APIKey == "" && providerConfig.APIKeyEnv != "" {
		providerConfig.APIKey = os.Getenv(providerConfig.APIKeyEnv)
	}
	if providerConfig.Settings.Timeout == 0 {
		providerConfig.Settings.Timeout = int(cc.defaultTimeout / time.Second)
	}
	if providerConfig.Settings.MaxItems == 0 {
		providerConfig.Settings.MaxItems = 100
	}

	return &providerConfig, nil
}

func (cc *ConfigCache) validateConfig(providerConfig *Config) error {
	if providerConfig == nil {
		return fmt.Errorf("providerConfig is nil")
	}

	requiredFields := map[string]string{
		"provider name": providerConfig.Name,
		"provider URL":  providerConfig.URL,
		"provider type": providerConfig.Type,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if cc.registry != nil && !cc.registry.Has(providerConfig.Type) {
		return fmt.Errorf("unknown provider type %q (known: %s)", providerConfig.Type, strings.Join(cc.registry.Types(), ", "))
	}

	nonNegativeFields := map[string]int{
		"timeout":   providerConfig.Settings.Timeout,
		"max items": providerConfig.Settings.MaxItems,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if err := validateFilters(providerConfig.Filters); err != nil {
		return err
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(providerName string) string {
	return filepath.Join(cc.providersDir, providerName+".yml")
}

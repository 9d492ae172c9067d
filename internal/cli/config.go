// Config loading for the facetd CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/facets/internal/paths"
	"github.com/mesh-intelligence/facets/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyListenAddr = "listen_addr"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# facetd configuration

# Backend selection
backend: sqlite

# Listen address for the HTTP API
listen_addr: ":8337"

# Data directory (optional; overridable by --data-dir flag)
# data_dir:
`

// loadConfig resolves the config directory, ensures a default config.yaml
// exists, reads it with Viper, and resolves the final Config. A missing
// config.yaml is not an error.
func loadConfig() (types.Config, error) {
	var cfg types.Config

	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return cfg, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return cfg, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return cfg, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyListenAddr, types.DefaultListenAddr)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return cfg, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg = types.Config{
		Backend:    v.GetString(cfgKeyBackend),
		DataDir:    dataDir,
		ListenAddr: v.GetString(cfgKeyListenAddr),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

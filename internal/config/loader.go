package config

import "fmt"

// loadFromFile reads the settings file at path, if any, into a GlobalConfig
// base for mergeGlobalConfig. An empty path yields a nil base.
func loadFromFile(path string) (*GlobalConfig, []string) {
	if path == "" {
		return nil, nil
	}

	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, []string{fmt.Sprintf("%s: %v", EnvConfigFile, err)}
	}

	return fileCfg.ToGlobalConfig()
}

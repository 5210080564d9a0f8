package state

import (
	"os"

	"github.com/goccy/go-yaml"
)

// ReadNetworkConfig loads a network config, fills in defaults and validates it
func ReadNetworkConfig(path string) (*NetworkCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseNetworkConfig(file)
}

func ParseNetworkConfig(data []byte) (*NetworkCfg, error) {
	var cfg NetworkCfg
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}
	ExpandNetworkConfig(&cfg)
	err = NetworkConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func WriteNetworkConfig(path string, cfg *NetworkCfg) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0700)
}

// Package config loads the server configuration from yaml, with defaults
// that stand alone when no file is given.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`
	Seed       int64  `yaml:"seed"`
	CacheLimit int    `yaml:"cache_limit"`

	Worldgen Worldgen `yaml:"worldgen"`
}

type Worldgen struct {
	BiomeRegionSize     int `yaml:"biome_region_size"`
	OreProbPermille     int `yaml:"ore_prob_permille"`
	TerrainProbPermille int `yaml:"terrain_prob_permille"`
	SprinkleStone       int `yaml:"sprinkle_stone_permille"`
	SprinkleDirt        int `yaml:"sprinkle_dirt_permille"`
}

func defaults() Config {
	return Config{
		ListenAddr: ":8080",
		DataDir:    "./data",
		Seed:       1337,
		CacheLimit: 64,
		Worldgen: Worldgen{
			BiomeRegionSize: 256,
		},
	}
}

// Load reads the config at path; an empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("chunkvault.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("chunkvault.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
}

func (c *Config) Validate() error {
	if c.CacheLimit < 0 {
		return fmt.Errorf("cache_limit must be >= 0, got %d", c.CacheLimit)
	}
	for name, v := range map[string]int{
		"ore_prob_permille":       c.Worldgen.OreProbPermille,
		"terrain_prob_permille":   c.Worldgen.TerrainProbPermille,
		"sprinkle_stone_permille": c.Worldgen.SprinkleStone,
		"sprinkle_dirt_permille":  c.Worldgen.SprinkleDirt,
	} {
		if v < 0 || v > 1000 {
			return fmt.Errorf("%s out of range [0,1000]: %d", name, v)
		}
	}
	return nil
}

// DBPath is where the chunk database lives under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "chunks.db")
}

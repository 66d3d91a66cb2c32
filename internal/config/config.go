// Package config loads coolcache server configuration from a TOML file,
// with flag-driven overrides applied by the caller.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// SaveRule is one (seconds, changes) auto-save threshold: a BGSAVE is
// triggered once both the elapsed time and the dirty counter reach
// their respective value.
type SaveRule struct {
	Seconds int
	Changes int
}

// Config is the full set of knobs the server accepts, loadable from a
// TOML file and overridable by CLI flags.
type Config struct {
	Listen     string `toml:"listen"`
	Dir        string `toml:"dir"`
	DBFilename string `toml:"dbfilename"`
	ReplicaOf  string `toml:"replicaof"`
	Save       string `toml:"save"`
}

// Default returns the out-of-the-box configuration.
func Default() *Config {
	return &Config{
		Listen:     ":6379",
		Dir:        ".",
		DBFilename: "dump.rdb",
		Save:       "900 1 300 10 60 10000",
	}
}

// Load reads a TOML config file into a fresh Config, seeded with
// defaults for any field the file doesn't set.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveRules parses the space-separated "seconds changes" pairs of the
// `save` config key, as consumed by the persistence scheduler's
// auto-save check. CONFIG GET/SET neither report nor change it.
func (c *Config) SaveRules() []SaveRule {
	return ParseSaveRules(c.Save)
}

// ParseSaveRules parses "sec1 changes1 sec2 changes2 ..." into rules,
// skipping any trailing unpaired token.
func ParseSaveRules(s string) []SaveRule {
	var nums []int
	var cur int
	var haveDigit bool
	flush := func() {
		if haveDigit {
			nums = append(nums, cur)
		}
		cur = 0
		haveDigit = false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int(r-'0')
			haveDigit = true
		default:
			flush()
		}
	}
	flush()
	var rules []SaveRule
	for i := 0; i+1 < len(nums); i += 2 {
		rules = append(rules, SaveRule{Seconds: nums[i], Changes: nums[i+1]})
	}
	return rules
}

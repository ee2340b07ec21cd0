// internal/config/config.go
package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Top-level application config.
type Config struct {
	Database      Database                   `json:"database"`
	FirstStep     string                     `json:"first_step"`
	TerminalSteps []string                   `json:"terminal_steps"`
	DefaultSteps  []string                   `json:"default_steps"`
	Jobs          map[string]json.RawMessage `json:"jobs"` // name -> raw job config
}

type Database struct {
	Driver string `json:"driver"` // sqlite | postgres | mysql
	DSN    string `json:"dsn"`
}

// Default config for the catalog feed job (used to build the first-run JSON).
type FeedDefaults struct {
	WatchDir string `json:"watch_dir"`
	PollSec  int    `json:"poll_sec"`
}

func LoadOrCreate(path string) (*Config, bool, error) {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			feed := FeedDefaults{
				WatchDir: "./feeds",
				PollSec:  10,
			}
			rawFeed, _ := json.Marshal(feed)

			cfg := &Config{
				Database: Database{
					Driver: "sqlite",
					DSN:    "bookstore.db",
				},
				FirstStep:     "placed",
				TerminalSteps: []string{"delivered", "cancelled"},
				DefaultSteps:  []string{"placed", "packed", "shipped", "delivered", "cancelled"},
				Jobs: map[string]json.RawMessage{
					"catalogfeed": rawFeed,
				},
			}
			if err := Save(path, cfg); err != nil {
				return nil, false, fmt.Errorf("writing default config: %w", err)
			}
			return cfg, true, nil
		}
		return nil, false, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, false, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Jobs == nil {
		cfg.Jobs = map[string]json.RawMessage{}
	}
	return &cfg, false, nil
}

func Save(path string, cfg *Config) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// Helper to decode one job's raw config into its target struct.
func (c *Config) UnmarshalJob(name string, v any) error {
	raw, ok := c.Jobs[name]
	if !ok {
		return fmt.Errorf("no job %q in config", name)
	}
	return json.Unmarshal(raw, v)
}

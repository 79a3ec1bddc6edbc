package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manvithgkacharya/yt-download/internal/utils"
)

// Duration wraps time.Duration so YAML values can be written as "30s" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config carries the server settings. Zero values keep the faithful
// defaults: unbounded concurrent jobs and no job-state eviction.
type Config struct {
	Listen         string   `yaml:"listen"`
	DownloadsDir   string   `yaml:"downloads_dir"`
	ResolveTimeout Duration `yaml:"resolve_timeout"`
	MaxJobs        int      `yaml:"max_jobs"`
	Retention      Duration `yaml:"retention"`
	RandomizeUA    bool     `yaml:"randomize_user_agent"`
	Debug          bool     `yaml:"debug"`
}

func Default() Config {
	return Config{
		Listen:         ":8080",
		DownloadsDir:   utils.DefaultDownloadsDir,
		ResolveTimeout: Duration(60 * time.Second),
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error reading config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %v", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DownloadsDir == "" {
		return fmt.Errorf("downloads_dir must not be empty")
	}
	if c.MaxJobs < 0 {
		return fmt.Errorf("max_jobs must not be negative")
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"songbench/internal/probe"
	"songbench/internal/runner"
	"songbench/internal/shape"
	"songbench/internal/user"
)

const EnvPrefix = "SONGBENCH"

type Settings struct {
	Load        LoadSettings  `mapstructure:"load"`
	Probe       ProbeSettings `mapstructure:"probe"`
	Log         LogSettings   `mapstructure:"log"`
	HistoryPath string        `mapstructure:"history_path"`
}

type LoadSettings struct {
	Preset string `mapstructure:"preset"`

	// Optional overrides of the preset
	Host     string        `mapstructure:"host"`
	Method   string        `mapstructure:"method"`
	Path     string        `mapstructure:"path"`
	WaitTime time.Duration `mapstructure:"wait_time"`

	Shape        string        `mapstructure:"shape"`
	TargetRPS    int           `mapstructure:"target_rps"`
	Duration     time.Duration `mapstructure:"duration"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`

	Headless    bool   `mapstructure:"headless"`
	Out         string `mapstructure:"out"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type ProbeSettings struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("load.preset", "play")
	v.SetDefault("load.host", "")
	v.SetDefault("load.method", "")
	v.SetDefault("load.path", "")
	v.SetDefault("load.wait_time", user.DefaultWaitTime)
	v.SetDefault("load.shape", shape.KindConstant)
	v.SetDefault("load.target_rps", 50)
	v.SetDefault("load.duration", 30*time.Second)
	v.SetDefault("load.poll_interval", runner.DefaultPollInterval)
	v.SetDefault("load.timeout", time.Duration(0))
	v.SetDefault("load.headless", false)
	v.SetDefault("load.out", "")
	v.SetDefault("load.metrics_addr", "")

	v.SetDefault("probe.url", probe.DefaultURL)
	v.SetDefault("probe.timeout", time.Duration(0))

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.json", false)

	v.SetDefault("history_path", defaultHistoryPath())
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "songbench", "history.db")
	}
	return filepath.Join(home, ".songbench", "history.db")
}

// NewViper returns a viper instance with defaults and environment binding.
// cfgFile may be empty, then $HOME/.songbench.yaml is used when present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigType("yaml")
			v.SetConfigName(".songbench")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if _, err := s.Load.Behavior(); err != nil {
		return err
	}
	if s.Load.TargetRPS <= 0 {
		return errors.New("load.target_rps must be greater than 0")
	}
	if s.Load.Duration <= 0 {
		return errors.New("load.duration must be greater than 0")
	}
	if _, err := shape.New(s.Load.Shape, s.Load.TargetRPS, s.Load.Duration); err != nil {
		return err
	}
	if err := checkURL(s.Probe.URL); err != nil {
		return fmt.Errorf("probe.url: %w", err)
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// Behavior resolves the preset and applies the overrides.
func (l LoadSettings) Behavior() (user.Behavior, error) {
	b, err := user.Preset(l.Preset)
	if err != nil {
		return b, err
	}

	if l.Host != "" {
		b.Host = l.Host
	}
	if l.Method != "" {
		b.Method = strings.ToUpper(l.Method)
	}
	if l.Path != "" {
		b.Path = l.Path
	}
	b.WaitTime = l.WaitTime

	if err := checkURL(b.URL()); err != nil {
		return b, fmt.Errorf("load target: %w", err)
	}
	return b, b.Validate()
}

func (l LoadSettings) RunnerConfig() (runner.Config, error) {
	b, err := l.Behavior()
	if err != nil {
		return runner.Config{}, err
	}

	return runner.Config{
		Behavior:     b,
		Shape:        l.Shape,
		TargetRPS:    l.TargetRPS,
		Duration:     l.Duration,
		PollInterval: l.PollInterval,
		Timeout:      l.Timeout,
		OutPrefix:    l.Out,
	}, nil
}

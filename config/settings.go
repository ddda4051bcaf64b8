package config

import (
	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/KOMKZ/go-yogan-cache/monitor"
	"github.com/KOMKZ/go-yogan-cache/pattern"
	"github.com/KOMKZ/go-yogan-cache/redis"
	"github.com/KOMKZ/go-yogan-cache/telemetry"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Cache modes.
const (
	ModeTiered = "tiered"
	ModeMemory = "memory"
)

// Settings is the whole configuration tree of a cache deployment.
type Settings struct {
	// Mode is "tiered" (memory + redis) or "memory" (default tiered)
	Mode string `mapstructure:"mode"`

	Redis     redis.Config         `mapstructure:"redis"`
	Cache     cache.Config         `mapstructure:"cache"`
	Patterns  pattern.Config       `mapstructure:"patterns"`
	Monitor   monitor.Config       `mapstructure:"monitor"`
	Logger    logger.ManagerConfig `mapstructure:"logger"`
	Telemetry telemetry.Config     `mapstructure:"telemetry"`
}

// RemoteEnabled reports whether a redis tier is configured.
func (s Settings) RemoteEnabled() bool {
	return s.Mode != ModeMemory
}

func (s *Settings) ApplyDefaults() {
	if s.Mode == "" {
		s.Mode = ModeTiered
	}
	s.Redis.ApplyDefaults()
	s.Cache.ApplyDefaults()
	s.Patterns.ApplyDefaults()
	s.Monitor.ApplyDefaults()
	s.Logger.ApplyDefaults()
	s.Telemetry.ApplyDefaults()
	if !s.Logger.EnableConsole && !s.Logger.EnableFile {
		s.Logger.EnableConsole = true
	}
}

// Validate checks every section. The redis section is skipped in memory mode.
func (s Settings) Validate() error {
	if err := validation.Validate(s.Mode, validation.In(ModeTiered, ModeMemory)); err != nil {
		return ErrInvalid.Wrapf(err, "mode %q", s.Mode)
	}
	if s.RemoteEnabled() {
		if err := s.Redis.Validate(); err != nil {
			return ErrInvalid.Wrap(err)
		}
	}
	if err := s.Cache.Validate(); err != nil {
		return ErrInvalid.Wrap(err)
	}
	if err := s.Patterns.Validate(); err != nil {
		return ErrInvalid.Wrap(err)
	}
	if err := s.Monitor.Validate(); err != nil {
		return ErrInvalid.Wrap(err)
	}
	if err := s.Logger.Validate(); err != nil {
		return ErrInvalid.Wrap(err)
	}
	if err := s.Telemetry.Validate(); err != nil {
		return ErrInvalid.Wrap(err)
	}
	return nil
}

// LoadSettings decodes the loader's merged tree, applies defaults and validates.
func LoadSettings(loader *Loader) (Settings, error) {
	var s Settings
	if err := loader.Unmarshal(&s); err != nil {
		return Settings{}, ErrDecode.Wrap(err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load builds the standard source stack and decodes it.
func Load(configFile, dotEnvFile string) (Settings, error) {
	loader, err := NewLoaderBuilder().
		WithConfigFile(configFile).
		WithDotEnv(dotEnvFile).
		Build()
	if err != nil {
		return Settings{}, ErrLoad.Wrap(err)
	}
	return LoadSettings(loader)
}

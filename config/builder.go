package config

// LoaderBuilder assembles the standard source stack:
// file (10) < .env (30) < environment (50) < overrides (100).
type LoaderBuilder struct {
	configFile string
	dotEnvFile string
	envPrefix  string
	overrides  map[string]interface{}
}

func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{envPrefix: EnvPrefix}
}

// WithConfigFile adds a YAML/JSON/TOML file. Missing files are ignored.
func (b *LoaderBuilder) WithConfigFile(path string) *LoaderBuilder {
	b.configFile = path
	return b
}

// WithDotEnv adds a .env file. Missing files are ignored.
func (b *LoaderBuilder) WithDotEnv(path string) *LoaderBuilder {
	b.dotEnvFile = path
	return b
}

// WithEnvPrefix changes the prefix; an empty prefix disables the environment source.
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithOverrides adds keys that win over every other source.
func (b *LoaderBuilder) WithOverrides(overrides map[string]interface{}) *LoaderBuilder {
	b.overrides = overrides
	return b
}

func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()
	if b.configFile != "" {
		loader.AddSource(NewFileSource(b.configFile, 10))
	}
	if b.dotEnvFile != "" {
		loader.AddSource(NewDotEnvSource(b.dotEnvFile, b.envPrefix, 30).AddBindings(Bindings()))
	}
	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, 50).AddBindings(Bindings()))
	}
	if len(b.overrides) > 0 {
		loader.AddSource(NewMapSource("overrides", 100, b.overrides))
	}
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

package runtimeconfig

import (
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/edirooss/actorkit/gen"
)

// EnvPrefix is stripped from environment variable names before they are
// mapped onto koanf paths, e.g. ACTORKIT_SUPERVISOR_MAX_RESTARTS ->
// supervisor.max_restarts.
const EnvPrefix = "ACTORKIT_"

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, an optional YAML file at path (skipped if path is ""), and
// environment variables prefixed with EnvPrefix. This is the same
// structs -> file -> env layering cartographus's LoadWithKoanf uses
// (internal/config/koanf.go), generalized to actorkit's own knobs.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	defaults := Default()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, gen.Annotatef(err, "runtimeconfig: load defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, gen.Annotatef(err, "runtimeconfig: load file %s", path)
			}
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, gen.Annotatef(err, "runtimeconfig: load environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, gen.Annotatef(err, "runtimeconfig: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, gen.Annotatef(err, "runtimeconfig: validate")
	}

	return cfg, nil
}

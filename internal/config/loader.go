package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of configuration environment variables. A double
// underscore separates nested keys: LAZYAPPWRITE_BACKEND__KEY sets backend.key.
const EnvPrefix = "LAZYAPPWRITE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps CLI flag names to config keys where they differ.
var flagKeys = map[string]string{
	"backend":     "backend.type",
	"endpoint":    "backend.endpoint",
	"project":     "backend.project",
	"key":         "backend.key",
	"database":    "database.id",
	"state":       "state_path",
	"parallelism": "sync.parallelism",
}

// findConfigFile returns the config file in dir, or "".
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if p := findConfigFile(dir); p != "" {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadDotEnv loads dir/.env into the process environment. Variables that
// are already set win.
func loadDotEnv(dir string) error {
	p := filepath.Join(dir, ".env")
	if err := godotenv.Load(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", p, err)
	}
	return nil
}

// Load reads configuration. cfgFile may be empty, in which case
// lazyappwrite.yaml is searched for upward from the working directory.
// flags may be nil; only flags that were explicitly set are applied.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	if cfgFile == "" {
		cfgFile = findConfigUpward(cwd)
	} else if _, err := os.Stat(cfgFile); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	projectRoot := cwd
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			cfgFile = abs
			projectRoot = filepath.Dir(abs)
		}
	}
	if err := loadDotEnv(projectRoot); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment: LAZYAPPWRITE_SYNC__POLL_ATTEMPTS -> sync.poll_attempts
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	var flagPaths map[string]bool
	if flags != nil {
		flagPaths = make(map[string]bool)
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "state_path" || key == "schemas" {
				flagPaths[key] = true
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ConfigFile = cfgFile
	cfg.ProjectRoot = projectRoot

	// Paths given as flags are relative to the working directory; everything
	// else is relative to the project root.
	stateBase, schemaBase := projectRoot, projectRoot
	if flagPaths["state_path"] {
		stateBase = cwd
	}
	if flagPaths["schemas"] {
		schemaBase = cwd
	}
	if cfg.StatePath != ":memory:" {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, stateBase)
	}
	for i, p := range cfg.Schemas {
		cfg.Schemas[i] = resolvePathRelativeTo(p, schemaBase)
	}

	applyBackendDefaults(&cfg.Backend)
	expandBackendEnvVars(&cfg.Backend)

	return &cfg, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unknown variables are left as written.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandBackendEnvVars expands environment variables in credential fields.
func expandBackendEnvVars(b *BackendConfig) {
	b.Endpoint = expandEnvVars(b.Endpoint)
	b.Project = expandEnvVars(b.Project)
	b.Key = expandEnvVars(b.Key)
	b.Host = expandEnvVars(b.Host)
	b.Database = expandEnvVars(b.Database)
	b.User = expandEnvVars(b.User)
	b.Password = expandEnvVars(b.Password)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"openai_api_key":             "openai.api_key",
	"openai_base_url":            "openai.base_url",
	"moviemood_chat_model":       "openai.chat_model",
	"moviemood_embedding_model":  "openai.embedding_model",
	"moviemood_temperature":      "openai.temperature",
	"utelly_api_key":             "availability.api_key",
	"utelly_base_url":            "availability.base_url",
	"utelly_host":                "availability.host",
	"moviemood_country":          "availability.country",
	"moviemood_lookup_timeout":   "availability.timeout",
	"moviemood_enrich_timeout":   "availability.aggregate_timeout",
	"moviemood_lookup_workers":   "availability.concurrency",
	"moviemood_lookup_rate":      "availability.requests_per_second",
	"langchain_api_key":          "tracing.api_key",
	"langchain_endpoint":         "tracing.endpoint",
	"langchain_project":          "tracing.project",
	"moviemood_catalog":          "catalog.paths",
	"moviemood_cache_dir":        "index.cache_dir",
	"moviemood_top_k":            "index.top_k",
	"moviemood_multi_query":      "retrieval.multi_query",
	"moviemood_query_count":      "retrieval.query_count",
	"moviemood_include_original": "retrieval.include_original",
	"moviemood_output":           "recommend.output",
	"log_level":                  "log.level",
	"log_format":                 "log.format",
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{"catalog.paths"}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigFile is an explicit YAML file; it must exist when set.
	ConfigFile string

	// DotEnv lists .env files to load before reading the environment.
	// Missing files are skipped. Existing variables are never overwritten.
	DotEnv []string
}

// Load resolves the configuration from defaults, file and environment,
// then validates it.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadDotEnv(opts.DotEnv); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := findConfigFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(paths []string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// findConfigFile returns the config file to load, or "" when there is none.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config file from %s: %w", ConfigPathEnvVar, err)
		}
		return envPath, nil
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// envTransformFunc maps an environment variable to its koanf path, or ""
// to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// FieldError describes one invalid setting.
type FieldError struct {
	Path   string // koanf path, e.g. "openai.api_key"
	EnvVar string // environment variable that sets it, if any
	Rule   string // failed validation tag
}

func (e FieldError) String() string {
	msg := fmt.Sprintf("%s failed %q", e.Path, e.Rule)
	if e.Rule == "required" {
		msg = e.Path + " is required"
	}
	if e.EnvVar != "" {
		msg += " (set " + e.EnvVar + ")"
	}
	return msg
}

// ValidationError lists every invalid setting found.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating configuration: %w", err)
	}

	envByPath := make(map[string]string, len(envMappings))
	for envName, path := range envMappings {
		envByPath[path] = strings.ToUpper(envName)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		if i := strings.IndexByte(path, '['); i >= 0 {
			path = path[:i]
		}
		out.Fields = append(out.Fields, FieldError{
			Path:   path,
			EnvVar: envByPath[path],
			Rule:   fe.Tag(),
		})
	}
	sort.Slice(out.Fields, func(i, j int) bool { return out.Fields[i].Path < out.Fields[j].Path })
	return out
}

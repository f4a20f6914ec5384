package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	DocumentConfig struct {
		// RootSelector replaces html and body selectors.
		RootSelector string `yaml:"root_selector" validate:"required"`
		// InlineRule wraps style attributes when markup is converted.
		InlineRule        string   `yaml:"inline_rule" validate:"required"`
		UppercaseLabels   bool     `yaml:"uppercase_labels"`
		BreakingSelectors []string `yaml:"breaking_selectors" validate:"dive,required"`
		// Replacement support and fallback tables, embedded ones are used when empty.
		PropertiesPath        string `yaml:"properties_path" sanitize:"assure_file_access"`
		FallbacksPath         string `yaml:"fallbacks_path" sanitize:"assure_file_access"`
		StylesheetExt         string `yaml:"stylesheet_ext" validate:"required,startswith=."`
		MarkupExt             string `yaml:"markup_ext" validate:"required,startswith=."`
		OutputNameTemplate    string `yaml:"output_name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
	}

	AssetsConfig struct {
		ResourcesRoot string            `yaml:"resources_root"`
		Patterns      []string          `yaml:"patterns" validate:"dive,required"`
		Fonts         map[string]string `yaml:"fonts" validate:"dive,keys,required,endkeys,required"`
		Images        map[string]string `yaml:"images" validate:"dive,keys,required,endkeys,required"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Assets    AssetsConfig   `yaml:"assets"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitizing failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

// ReadTables returns replacement policy tables requested by configuration,
// nil means embedded table should be used.
func (conf *DocumentConfig) ReadTables() (properties, fallbacks []byte, err error) {
	if conf.PropertiesPath != "" {
		if properties, err = os.ReadFile(conf.PropertiesPath); err != nil {
			return nil, nil, fmt.Errorf("unable to read properties table from %q: %w", conf.PropertiesPath, err)
		}
	}
	if conf.FallbacksPath != "" {
		if fallbacks, err = os.ReadFile(conf.FallbacksPath); err != nil {
			return nil, nil, fmt.Errorf("unable to read fallbacks table from %q: %w", conf.FallbacksPath, err)
		}
	}
	return properties, fallbacks, nil
}

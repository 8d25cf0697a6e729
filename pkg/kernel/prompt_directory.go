package kernel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	PromptFileName     = "skprompt.txt"
	ConfigJSONFileName = "config.json"
	ConfigYAMLFileName = "config.yaml"
)

// LoadPromptPlugin reads a prompt plugin directory. Each subdirectory holding
// a skprompt.txt becomes one function named after the subdirectory;
// subdirectories without a prompt file are skipped.
func LoadPromptPlugin(ctx context.Context, dir string) (*Plugin, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read prompt plugin directory %s", dir)
	}

	var subdirs []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		}
	}

	functions := make([]*PromptFunction, len(subdirs))
	eg, _ := errgroup.WithContext(ctx)
	for i, name := range subdirs {
		eg.Go(func() error {
			f, err := loadPromptFunction(filepath.Join(dir, name), name)
			if err != nil {
				return err
			}
			functions[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var fns []Function
	for _, f := range functions {
		if f != nil {
			fns = append(fns, f)
		}
	}

	pluginName := functionName(filepath.Base(filepath.Clean(dir)))
	log.Debug().
		Str("plugin", pluginName).
		Str("dir", dir).
		Int("functions", len(fns)).
		Msg("loaded prompt plugin")

	return NewPlugin(pluginName, "", fns...)
}

func loadPromptFunction(dir string, dirName string) (*PromptFunction, error) {
	promptBytes, err := os.ReadFile(filepath.Join(dir, PromptFileName))
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("dir", dir).Msg("skipping directory without prompt file")
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read prompt in %s", dir)
	}

	config, err := loadPromptConfig(dir)
	if err != nil {
		return nil, err
	}

	return NewPromptFunction(functionName(dirName), string(promptBytes), *config)
}

func loadPromptConfig(dir string) (*PromptTemplateConfig, error) {
	config := &PromptTemplateConfig{}

	b, err := os.ReadFile(filepath.Join(dir, ConfigJSONFileName))
	if err == nil {
		if err := json.Unmarshal(b, config); err != nil {
			return nil, errors.Wrapf(err, "could not parse %s in %s", ConfigJSONFileName, dir)
		}
		return config, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "could not read %s in %s", ConfigJSONFileName, dir)
	}

	b, err = os.ReadFile(filepath.Join(dir, ConfigYAMLFileName))
	if err == nil {
		if err := yaml.Unmarshal(b, config); err != nil {
			return nil, errors.Wrapf(err, "could not parse %s in %s", ConfigYAMLFileName, dir)
		}
		return config, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(err, "could not read %s in %s", ConfigYAMLFileName, dir)
	}

	return config, nil
}

// functionName keeps valid identifiers as they are and camel-cases the rest
// ("write-cover-letter" becomes "WriteCoverLetter").
func functionName(name string) string {
	if isIdentifier(name) {
		return name
	}
	return strcase.ToCamel(name)
}

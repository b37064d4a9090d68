package jsl

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"etlflow/pkg/batch/util/exception"
	"etlflow/pkg/batch/util/logger"
)

// LoadFromBytes parses and validates one definition document. Unknown keys
// are rejected.
func LoadFromBytes(data []byte) (*Definitions, error) {
	defs, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return defs, nil
}

func decode(data []byte) (*Definitions, error) {
	defs := &Definitions{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, exception.NewConfigurationError("jsl_loader", "cannot parse job definitions", err)
	}
	return defs, nil
}

// LoadFromPath loads a definition file, or every .yaml/.yml file of a
// directory in name order. Names must be unique across files.
func LoadFromPath(path string) (*Definitions, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, exception.NewConfigurationError("jsl_loader", "cannot read job definitions %s", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, exception.NewConfigurationError("jsl_loader", "cannot list job definitions in %s", path, err)
		}
		files = files[:0]
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	all := &Definitions{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, exception.NewConfigurationError("jsl_loader", "cannot read %s", f, err)
		}
		defs, err := decode(data)
		if err != nil {
			return nil, exception.NewConfigurationError("jsl_loader", "%s", f, err)
		}
		if err := all.Merge(defs); err != nil {
			return nil, err
		}
		logger.Debugf("loaded job definitions from %s", f)
	}
	if err := all.Validate(); err != nil {
		return nil, err
	}
	logger.Infof("loaded %d jobs, %d loads and %d sources", len(all.Jobs), len(all.Loads), len(all.Sources))
	return all, nil
}

// Merge adds the entries of other. Duplicate names are an error.
func (d *Definitions) Merge(other *Definitions) error {
	if d.Sources == nil {
		d.Sources = map[string]Source{}
	}
	if d.Loads == nil {
		d.Loads = map[string]Load{}
	}
	if d.Jobs == nil {
		d.Jobs = map[string]Job{}
	}
	for name, s := range other.Sources {
		if _, dup := d.Sources[name]; dup {
			return exception.NewConfigurationError("jsl_loader", "source %s is defined twice", name)
		}
		d.Sources[name] = s
	}
	for name, l := range other.Loads {
		if _, dup := d.Loads[name]; dup {
			return exception.NewConfigurationError("jsl_loader", "load %s is defined twice", name)
		}
		d.Loads[name] = l
	}
	for name, j := range other.Jobs {
		if _, dup := d.Jobs[name]; dup {
			return exception.NewConfigurationError("jsl_loader", "job %s is defined twice", name)
		}
		d.Jobs[name] = j
	}
	d.DefaultContextVariables = append(d.DefaultContextVariables, other.DefaultContextVariables...)
	return nil
}

// JobNames returns the defined job names in sorted order.
func (d *Definitions) JobNames() []string {
	names := make([]string, 0, len(d.Jobs))
	for n := range d.Jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

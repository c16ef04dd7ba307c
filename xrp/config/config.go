// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package config parses ini-formatted configuration files.
package config

import (
	"bytes"
	"fmt"

	"gopkg.in/ini.v1"
)

// Options returns all key-value options from the provided config file path
// or []byte data, section headers flattened away.
func Options(cfgPathOrData any) (map[string]string, error) {
	cfgFile, err := ini.Load(cfgPathOrData)
	if err != nil {
		return nil, err
	}
	return options(cfgFile), nil
}

func options(cfgFile *ini.File) map[string]string {
	opts := make(map[string]string)
	for _, section := range cfgFile.Sections() {
		for _, key := range section.Keys() {
			opts[key.Name()] = key.String()
		}
	}
	return opts
}

// Parse parses config options from the provided config file path or []byte
// data into the specified struct. Section headers are flattened first so that
// sectioned files fill unsectioned structs.
func Parse(cfgPathOrData, obj any) error {
	cfgFile, err := ini.Load(cfgPathOrData)
	if err != nil {
		return err
	}
	sections := cfgFile.Sections()
	if len(sections) > 1 || sections[0].Name() != ini.DefaultSection {
		var buf bytes.Buffer
		for key, value := range options(cfgFile) {
			fmt.Fprintf(&buf, "%s=%s\n", key, value)
		}
		return Parse(buf.Bytes(), obj)
	}
	return cfgFile.MapTo(obj)
}

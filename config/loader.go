/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
)

// Loader reads configuration data (a file, an io.Reader, environment
// variables) once and feeds it to the library's configuration objects,
// typically the rate limiter Config and the log Config. Each object gets
// its defaults applied and its values set under its own key prefix.
type Loader struct {
	DataProvider DataProvider
}

// NewLoader creates a new Loader on top of the given data provider.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// NewDefaultLoader creates a new Loader that also accepts values from
// environment variables starting with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// LoadFromFile reads configuration data from the file and sets the values
// in the passed configuration objects.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.load(cfgs)
}

// LoadFromReader reads configuration data from the reader and sets the
// values in the passed configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.load(cfgs)
}

func (l *Loader) load(cfgs []Config) error {
	for _, cfg := range cfgs {
		dp := l.DataProvider
		if kpHolder, ok := cfg.(KeyPrefixProvider); ok && kpHolder.KeyPrefix() != "" {
			dp = NewKeyPrefixedDataProvider(l.DataProvider, kpHolder.KeyPrefix())
		}
		cfg.SetProviderDefaults(dp)
		if err := cfg.Set(dp); err != nil {
			return err
		}
	}
	return nil
}

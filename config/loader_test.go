/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type testAppConfig struct {
	Limiter struct {
		Alg string
	}
}

func (c *testAppConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("limiter.alg", "token_bucket")
}

func (c *testAppConfig) Set(dp DataProvider) error {
	var err error
	c.Limiter.Alg, err = dp.GetString("limiter.alg")
	return err
}

type testQuotaConfig struct {
	Rate string
}

func (c *testQuotaConfig) KeyPrefix() string {
	return "quota"
}

func (c *testQuotaConfig) SetProviderDefaults(_ DataProvider) {}

func (c *testQuotaConfig) Set(dp DataProvider) error {
	var err error
	c.Rate, err = dp.GetString("rate")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	cfgLoader := NewLoader(NewViperAdapter())

	t.Run("load config, use defaults", func(t *testing.T) {
		appCfg := &testAppConfig{}
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, appCfg)
		require.NoError(t, err)
		require.Equal(t, "token_bucket", appCfg.Limiter.Alg)
	})

	t.Run("load config", func(t *testing.T) {
		appCfg := &testAppConfig{}
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(`{"limiter":{"alg":"leaky_bucket"}}`), DataTypeJSON, appCfg)
		require.NoError(t, err)
		require.Equal(t, "leaky_bucket", appCfg.Limiter.Alg)
	})

	t.Run("load config, use key prefix", func(t *testing.T) {
		quotaCfg := &testQuotaConfig{}
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(`{"quota":{"rate":"100/m"}}`), DataTypeJSON, quotaCfg)
		require.NoError(t, err)
		require.Equal(t, "100/m", quotaCfg.Rate)
	})

	t.Run("load several configs at once", func(t *testing.T) {
		appCfg := &testAppConfig{}
		quotaCfg := &testQuotaConfig{}
		cfgData := `{"limiter":{"alg":"sliding_window"},"quota":{"rate":"10/s"}}`
		err := cfgLoader.LoadFromReader(bytes.NewBufferString(cfgData), DataTypeJSON, appCfg, quotaCfg)
		require.NoError(t, err)
		require.Equal(t, "sliding_window", appCfg.Limiter.Alg)
		require.Equal(t, "10/s", quotaCfg.Rate)
	})
}

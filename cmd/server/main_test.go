package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fptmart/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	cases := map[string]config.Config{
		"short":         {AuthSecret: "short"},
		"repeated char": {AuthSecret: strings.Repeat("a", 40)},
		"repeated word": {AuthSecret: strings.Repeat("changeme", 5)},
		"few distinct":  {AuthSecret: strings.Repeat("abc123", 6)},
		"wildcard prod": {AuthSecret: "0123456789abcdef0123456789abcdef", AppEnv: "production", AllowedOrigin: "*"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, validateSecurityConfig(cfg))
		})
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AppEnv:        "production",
		AllowedOrigin: "https://pos.fptmart.vn",
	})
	require.NoError(t, err)
}

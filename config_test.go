package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		bind:           "0.0.0.0",
		lang:           "fr",
		lookupTimeout:  10 * time.Second,
		port:           8080,
		sessionTimeout: time.Hour,
		target:         50,
		wikidata:       "https://www.wikidata.org",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"tls pair", func(c *Config) { c.tlsCert = "cert.pem"; c.tlsKey = "key.pem" }, false},
		{"tls cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, true},
		{"tls key without cert", func(c *Config) { c.tlsKey = "key.pem" }, true},
		{"port too low", func(c *Config) { c.port = 0 }, true},
		{"port too high", func(c *Config) { c.port = 65536 }, true},
		{"empty lang", func(c *Config) { c.lang = "" }, true},
		{"zero target", func(c *Config) { c.target = 0 }, true},
		{"lookup timeout too short", func(c *Config) { c.lookupTimeout = 500 * time.Millisecond }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mod(cfg)

			err := cfg.validate()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert = "cert.pem"
	cfg.tlsKey = "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestConfigWikipediaBase(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "https://fr.wikipedia.org", cfg.wikipediaBase())

	cfg.lang = "en"
	assert.Equal(t, "https://en.wikipedia.org", cfg.wikipediaBase())

	cfg.wikipedia = "http://localhost:8888/"
	assert.Equal(t, "http://localhost:8888", cfg.wikipediaBase())
}

func TestConfigWikidataBase(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "https://www.wikidata.org", cfg.wikidataBase())

	cfg.wikidata = "http://localhost:9999/"
	assert.Equal(t, "http://localhost:9999", cfg.wikidataBase())
}

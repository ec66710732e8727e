package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	lang           string
	lookupTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	target         int
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
	wikidata       string
	wikipedia      string
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.lang == "" {
		return errors.New("--lang must not be empty")
	}
	if c.target < 1 {
		return fmt.Errorf("invalid target (must be at least 1): %d", c.target)
	}
	if c.lookupTimeout < time.Second {
		return fmt.Errorf("invalid lookup timeout (must be at least 1s): %s", c.lookupTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// wikipediaBase returns the configured Wikipedia base URL, deriving the
// language subdomain from --lang when no explicit override was given.
func (c *Config) wikipediaBase() string {
	if c.wikipedia != "" {
		return strings.TrimSuffix(c.wikipedia, "/")
	}
	return "https://" + c.lang + ".wikipedia.org"
}

func (c *Config) wikidataBase() string {
	return strings.TrimSuffix(c.wikidata, "/")
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FEMMEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "femmebox",
		Short:         "A party game of naming notable women, validated against Wikipedia and Wikidata.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FEMMEBOX_BIND)")
	fs.StringVar(&cfg.lang, "lang", "fr", "wiki language code used for search and labels (env: FEMMEBOX_LANG)")
	fs.DurationVar(&cfg.lookupTimeout, "lookup-timeout", 10*time.Second, "timeout for remote wiki lookups (env: FEMMEBOX_LOOKUP_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: FEMMEBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: FEMMEBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: FEMMEBOX_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: FEMMEBOX_SESSION_TIMEOUT)")
	fs.IntVar(&cfg.target, "target", 50, "number of women to find before a session is won (env: FEMMEBOX_TARGET)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: FEMMEBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: FEMMEBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: FEMMEBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: FEMMEBOX_VERSION)")
	fs.StringVar(&cfg.wikidata, "wikidata", "https://www.wikidata.org", "wikidata base URL (env: FEMMEBOX_WIKIDATA)")
	fs.StringVar(&cfg.wikipedia, "wikipedia", "", "wikipedia base URL, overrides --lang subdomain (env: FEMMEBOX_WIKIPEDIA)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("femmebox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

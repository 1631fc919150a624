package daemon

import (
	"os"
	"strings"
)

// Options holds the simple key=value overrides dev/src/daemon.py reads
// from a per-script environment variable named "udp_<script_stem>"
// (e.g. udp_capture_sales=onetime=1,nowait=1), alongside any
// command-line flags a binary's Bind(*pflag.FlagSet) also sets.
type Options struct {
	values map[string]string
}

// EnvVarName renders the "udp_<stem>" environment variable name for a
// script stem, matching dev/src/daemon.py's `just_file_stem(...).lower()`.
func EnvVarName(scriptStem string) string {
	return "udp_" + strings.ToLower(scriptStem)
}

// LoadOptionsFromEnv reads and parses the udp_<stem> environment
// variable, returning an empty Options if it is unset.
func LoadOptionsFromEnv(scriptStem string) *Options {
	return ParseOptions(os.Getenv(EnvVarName(scriptStem)))
}

// ParseOptions parses a comma-separated key=value list, e.g.
// "onetime=1,nowait=1". A bare key (no "=") is treated as key=1.
func ParseOptions(raw string) *Options {
	o := &Options{values: make(map[string]string)}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if k, v, ok := strings.Cut(tok, "="); ok {
			o.values[strings.ToLower(k)] = v
		} else {
			o.values[strings.ToLower(tok)] = "1"
		}
	}
	return o
}

// Set overrides a single option, used when a binary's CLI flags take
// precedence over the environment variable.
func (o *Options) Set(key, value string) {
	o.values[strings.ToLower(key)] = value
}

// Get returns the raw string value of key, or "" if unset.
func (o *Options) Get(key string) string {
	return o.values[strings.ToLower(key)]
}

// Bool reports whether key is set to "1" or "true".
func (o *Options) Bool(key string) bool {
	v := o.Get(key)
	return v == "1" || strings.EqualFold(v, "true")
}

// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package config

import "testing"

type tConfig struct {
	URL      string `ini:"url"`
	LogLevel string `ini:"loglevel"`
	Fee      uint64 `ini:"maxfee"`
}

func TestParse(t *testing.T) {
	data := []byte("url=wss://s1.example.org\nloglevel=debug\nmaxfee=500\n")
	var cfg tConfig
	if err := Parse(data, &cfg); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.URL != "wss://s1.example.org" || cfg.LogLevel != "debug" || cfg.Fee != 500 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestParseSectioned(t *testing.T) {
	data := []byte("[node]\nurl=wss://s2.example.org\n[log]\nloglevel=trace\n")
	var cfg tConfig
	if err := Parse(data, &cfg); err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if cfg.URL != "wss://s2.example.org" || cfg.LogLevel != "trace" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestOptions(t *testing.T) {
	opts, err := Options([]byte("a=1\n[sec]\nb=2\n"))
	if err != nil {
		t.Fatalf("Options error: %v", err)
	}
	if opts["a"] != "1" || opts["b"] != "2" {
		t.Fatalf("unexpected options %v", opts)
	}
}

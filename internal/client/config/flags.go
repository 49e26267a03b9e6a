package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-e string   deployment environment (local, prw, stage, prd)
//	-u string   gateway base URL, wins over -e
//	-t int      request timeout in seconds
//	-s string   session database path
//
// Only these flags are read from os.Args (see flagx.FilterArgs). A parse
// error panics.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-u", "-t", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	env := fs.String("e", "", "deployment environment (local, prw, stage, prd)")
	baseURL := fs.String("u", "", "gateway base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.SessionDB, "s", cfg.SessionDB, "session database path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if url, ok := Environments[*env]; ok {
		cfg.BaseURL = url
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}

// Command dsquery runs one query against a database and prints the rows as JSON lines.
//
//	dsquery [flags] QUERY [ARG...]
//
// QUERY is SQL text or q:name for a query loaded with -queries. Each ARG is either
// name=value, a keyword argument, or a bare positional value. All values are passed as
// text unless the query declares coercions for its parameters.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jonbodner/dsquery"
	"github.com/jonbodner/dsquery/logger"
	_ "github.com/mutecomm/go-sqlcipher"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
)

type options struct {
	config  string
	dsn     string
	driver  string
	queries string
	params  string
	exec    bool
	profile string
	verbose bool
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var o options
	flag.StringVar(&o.config, "config", "", "properties file with dsquery.* settings")
	flag.StringVar(&o.dsn, "dsn", "", "connection descriptor; empty means the driver's defaults")
	flag.StringVar(&o.driver, "driver", "", "database/sql driver: postgres or sqlite3")
	flag.StringVar(&o.queries, "queries", "", "comma separated properties files of named queries")
	flag.StringVar(&o.params, "params", "", "parameters of an inline QUERY, as name[:coercion][=default],...")
	flag.BoolVar(&o.exec, "exec", false, "run QUERY as a statement and print the rows affected")
	flag.StringVar(&o.profile, "profile", "", "write a cpu or mem profile to the working directory")
	flag.BoolVar(&o.verbose, "v", false, "log statements")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: dsquery [flags] QUERY [ARG...]")
		flag.PrintDefaults()
		return 2
	}

	switch o.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		log.Errorf("unknown profile mode %q", o.profile)
		return 2
	}

	if err := run(o, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Error(err)
		return 1
	}
	return 0
}

func run(o options, query string, rawArgs []string) error {
	ctx := context.Background()
	if o.verbose {
		log.SetLevel(log.DebugLevel)
		ctx = logger.WithLevel(ctx, logger.DEBUG)
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	var opts []dsquery.Option
	if o.queries != "" {
		mappers, err := dsquery.PropFilesToQueryMappers(strings.Split(o.queries, ",")...)
		if err != nil {
			return err
		}
		opts = append(opts, dsquery.WithQueryMappers(mappers...))
	}

	ds, err := dsquery.Open(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer ds.Close()

	params, err := dsquery.ParseParams(o.params)
	if err != nil {
		return err
	}
	q, err := ds.Query(query, params...)
	if err != nil {
		return err
	}
	args := parseArgs(rawArgs)

	if o.exec {
		count, err := q.Exec(ctx, args)
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	}

	rows, err := q.Invoke(ctx, args)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig layers the sources of configuration, each overriding the one before: defaults,
// the environment, the config file, then flags.
func loadConfig(o options) (dsquery.Config, error) {
	cfg, err := dsquery.DefaultConfig().FromEnv()
	if err != nil {
		return cfg, err
	}
	if o.config != "" {
		cfg, err = cfg.FromFile(o.config)
		if err != nil {
			return cfg, err
		}
		log.Info("took settings from ", o.config)
	}
	if o.driver != "" {
		cfg.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.DSN = o.dsn
		log.Info("took DSN from cmd line")
	}
	if cfg.DSN == "" {
		log.Warn("using empty DSN")
	}
	return cfg, nil
}

// parseArgs turns name=value into a keyword and anything else into a positional value.
func parseArgs(raw []string) dsquery.Args {
	var pos []interface{}
	kw := map[string]interface{}{}
	for _, a := range raw {
		if i := strings.Index(a, "="); i > 0 {
			kw[a[:i]] = a[i+1:]
			continue
		}
		pos = append(pos, a)
	}
	return dsquery.Mixed(pos, kw)
}

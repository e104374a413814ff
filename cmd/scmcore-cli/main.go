// Copyright 2025 Oppie Thunder Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/good-night-oppie/scmcore/cmd/scmcore-cli/internal/cli"
	"github.com/good-night-oppie/scmcore/internal/config"
	"github.com/good-night-oppie/scmcore/internal/metrics"
	"github.com/good-night-oppie/scmcore/internal/obslog"
)

// Version metadata. Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// procMetrics times every subcommand invocation. A CLI process only ever
// runs one operation, so its Snapshot has a single-sample series per op;
// it exists so `SCMCORE_METRICS=1` gives a scriptable way to sample
// latency across many invocations without standing up a metrics server.
var procMetrics = metrics.NewEngineMetrics()

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "manifest":
		handleManifest()
	case "changelog":
		handleChangelog()
	case "blob":
		handleBlob()
	case "version", "--version", "-v":
		handleVersion()
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	reportMetrics()
}

// timed runs fn, recording its wall-clock duration under op, and dies on error.
func timed(op string, fn func() error) {
	start := time.Now()
	err := fn()
	procMetrics.ObserveLatency(op, time.Since(start))
	if err != nil {
		die(err)
	}
}

// reportMetrics prints the process's latency snapshot to stderr when
// SCMCORE_METRICS is set, so a caller scripting many CLI invocations can
// opt into per-call timing without parsing stdout's JSON result payload.
func reportMetrics() {
	if os.Getenv("SCMCORE_METRICS") == "" {
		return
	}
	_ = json.NewEncoder(os.Stderr).Encode(procMetrics.Snapshot())
}

func usage() {
	fmt.Println(`scmcore-cli
Commands:
  manifest apply    --root <hash|""> --op <op> [--op <op>]...
  manifest get      --root <hash|""> --path <path>
  manifest list     --root <hash|""> --path <path>
  manifest finalize --root <hash|""> --op <op>... --parent <hash> [--parent <hash>]
  manifest diff     --left <hash> --right <hash> [--bfs]
  changelog seed             --repo <id> --records <file>
  changelog build-incremental --head <hash> --records <file>
  changelog lookup           --hash <hash>
  changelog stats
  blob inspect --hash <hash>
  blob put     --file <path>
  version      [-v|--version]

An op is "insert:<path>:<hash>:<regular|executable|symlink>" or "remove:<path>".
--records is a newline-delimited JSON file of {"hash":"...","parents":["...",...]} rows.
Set SCMCORE_METRICS=1 to print a latency snapshot for this invocation to stderr.`)
}

func loadConfig() config.Config {
	cfg := config.Singleton()
	obslog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: obslog.ParseLevel(cfg.Log.Level),
	})))
	return cfg
}

func parseOps(values []string) ([]cli.Op, error) {
	ops := make([]cli.Op, 0, len(values))
	for _, v := range values {
		op, err := cli.ParseOp(v)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// repeatedFlag implements flag.Value for --op/--parent flags that may be
// repeated, collecting each occurrence in order.
type repeatedFlag []string

func (r *repeatedFlag) String() string { return fmt.Sprint([]string(*r)) }
func (r *repeatedFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func handleManifest() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "manifest: missing subcommand")
		os.Exit(2)
	}
	switch os.Args[2] {
	case "apply":
		fs := flag.NewFlagSet("manifest apply", flag.ExitOnError)
		root := fs.String("root", "", "root hash (empty for a new tree)")
		var ops repeatedFlag
		fs.Var(&ops, "op", "insert:<path>:<hash>:<type> or remove:<path>; may repeat")
		_ = fs.Parse(os.Args[3:])

		parsed, err := parseOps(ops)
		if err != nil {
			die(err)
		}
		cfg := loadConfig()
		timed("manifest.flush", func() error {
			return cli.HandleManifestApply(os.Stdout, cfg, *root, parsed)
		})
	case "get":
		fs := flag.NewFlagSet("manifest get", flag.ExitOnError)
		root := fs.String("root", "", "root hash")
		path := fs.String("path", "", "repo path")
		_ = fs.Parse(os.Args[3:])

		cfg := loadConfig()
		timed("manifest.get", func() error {
			return cli.HandleManifestGet(os.Stdout, cfg, *root, *path)
		})
	case "list":
		fs := flag.NewFlagSet("manifest list", flag.ExitOnError)
		root := fs.String("root", "", "root hash")
		path := fs.String("path", "", "repo path")
		_ = fs.Parse(os.Args[3:])

		cfg := loadConfig()
		timed("manifest.list", func() error {
			return cli.HandleManifestList(os.Stdout, cfg, *root, *path)
		})
	case "finalize":
		fs := flag.NewFlagSet("manifest finalize", flag.ExitOnError)
		root := fs.String("root", "", "root hash (empty for a new tree)")
		var ops repeatedFlag
		fs.Var(&ops, "op", "insert:<path>:<hash>:<type> or remove:<path>; may repeat")
		var parents repeatedFlag
		fs.Var(&parents, "parent", "parent root hash; may repeat up to two")
		_ = fs.Parse(os.Args[3:])

		parsed, err := parseOps(ops)
		if err != nil {
			die(err)
		}
		cfg := loadConfig()
		timed("manifest.finalize", func() error {
			return cli.HandleManifestFinalize(os.Stdout, cfg, *root, parsed, parents)
		})
	case "diff":
		fs := flag.NewFlagSet("manifest diff", flag.ExitOnError)
		left := fs.String("left", "", "left root hash")
		right := fs.String("right", "", "right root hash")
		bfs := fs.Bool("bfs", false, "use the breadth-first diff strategy")
		_ = fs.Parse(os.Args[3:])

		cfg := loadConfig()
		timed("manifest.diff", func() error {
			return cli.HandleManifestDiff(os.Stdout, cfg, *left, *right, *bfs)
		})
	default:
		fmt.Fprintf(os.Stderr, "manifest: unknown subcommand %s\n", os.Args[2])
		os.Exit(2)
	}
}

func handleChangelog() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "changelog: missing subcommand")
		os.Exit(2)
	}
	ctx := context.Background()
	switch os.Args[2] {
	case "seed":
		fs := flag.NewFlagSet("changelog seed", flag.ExitOnError)
		repo := fs.String("repo", "default", "repository id")
		recordsPath := fs.String("records", "", "path to a newline-delimited JSON records file")
		_ = fs.Parse(os.Args[3:])

		records, err := cli.ReadRecordsFile(*recordsPath)
		if err != nil {
			die(err)
		}
		cfg := loadConfig()
		timed("changelog.seed", func() error {
			return cli.HandleChangelogSeed(ctx, os.Stdout, cfg, *repo, records)
		})
	case "build-incremental":
		fs := flag.NewFlagSet("changelog build-incremental", flag.ExitOnError)
		head := fs.String("head", "", "head changeset hash")
		recordsPath := fs.String("records", "", "path to a newline-delimited JSON records file")
		_ = fs.Parse(os.Args[3:])

		records, err := cli.ReadRecordsFile(*recordsPath)
		if err != nil {
			die(err)
		}
		cfg := loadConfig()
		timed("changelog.build_incremental", func() error {
			return cli.HandleChangelogBuildIncremental(ctx, os.Stdout, cfg, *head, records)
		})
	case "lookup":
		fs := flag.NewFlagSet("changelog lookup", flag.ExitOnError)
		hash := fs.String("hash", "", "changeset hash")
		_ = fs.Parse(os.Args[3:])

		cfg := loadConfig()
		timed("changelog.lookup", func() error {
			return cli.HandleChangelogLookup(ctx, os.Stdout, cfg, *hash)
		})
	case "stats":
		cfg := loadConfig()
		timed("changelog.stats", func() error {
			return cli.HandleChangelogStats(ctx, os.Stdout, cfg)
		})
	default:
		fmt.Fprintf(os.Stderr, "changelog: unknown subcommand %s\n", os.Args[2])
		os.Exit(2)
	}
}

func handleBlob() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "blob: usage: blob inspect --hash <hash> | blob put --file <path>")
		os.Exit(2)
	}
	switch os.Args[2] {
	case "inspect":
		fs := flag.NewFlagSet("blob inspect", flag.ExitOnError)
		hash := fs.String("hash", "", "blob hash")
		_ = fs.Parse(os.Args[3:])

		cfg := loadConfig()
		timed("blob.inspect", func() error {
			return cli.HandleBlobInspect(os.Stdout, cfg, *hash)
		})
	case "put":
		fs := flag.NewFlagSet("blob put", flag.ExitOnError)
		file := fs.String("file", "", "path to the file to store")
		_ = fs.Parse(os.Args[3:])

		cfg := loadConfig()
		timed("blob.put", func() error {
			return cli.HandleBlobPut(os.Stdout, cfg, *file)
		})
	default:
		fmt.Fprintf(os.Stderr, "blob: unknown subcommand %s\n", os.Args[2])
		os.Exit(2)
	}
}

func handleVersion() {
	fmt.Printf("scmcore-cli %s (commit %s, built %s)\n", version, commit, date)
}

func die(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

// Package main provides the zcat CLI entrypoint.
//
// Usage:
//
//	zcat [--offset N] [--count N] [--algorithm name] <file>
//
// zcat prints the decompressed contents of a file to stdout. Files that are
// not compressed are printed as-is, so it can be used on mixed inputs. The
// --offset flag exercises the stream's forward-seek emulation instead of
// reading and discarding in the shell.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/absfs/zstream"
)

func main() {
	app := &cli.App{
		Name:      "zcat",
		Usage:     "print decompressed file contents to stdout",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:    "offset",
				Aliases: []string{"o"},
				Usage:   "skip to this offset in the decompressed stream",
			},
			&cli.Int64Flag{
				Name:    "count",
				Aliases: []string{"c"},
				Value:   -1,
				Usage:   "print at most this many decompressed bytes (-1 for all)",
			},
			&cli.StringFlag{
				Name:    "algorithm",
				Aliases: []string{"a"},
				Usage:   "force a compression algorithm instead of detecting (gzip, zstd, lz4, brotli, snappy)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log stream diagnostics to stderr",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "zcat:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}

	config := zstream.DefaultConfig()
	if algo := c.String("algorithm"); algo != "" {
		config.Algorithm = zstream.Algorithm(algo)
	}
	if c.Bool("verbose") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		config.Logger = logger
	}

	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	r, _, err := zstream.Open(f, os.O_RDONLY, config)
	if err != nil {
		return err
	}
	if rc, ok := r.(io.Closer); ok {
		defer rc.Close()
	}

	if offset := c.Int64("offset"); offset > 0 {
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
	}

	count := c.Int64("count")
	if count >= 0 {
		_, err = io.CopyN(os.Stdout, r, count)
		if err == io.EOF {
			err = nil
		}
	} else {
		_, err = io.Copy(os.Stdout, r)
	}
	return err
}

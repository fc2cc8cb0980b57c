// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// rectable reads a table from a recording and writes it as CSV or Parquet,
// or serves the recording over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/OpenPSG/rectable"
	"github.com/OpenPSG/rectable/edf"
	"github.com/OpenPSG/rectable/export"
	"github.com/OpenPSG/rectable/internal/api"
	"github.com/OpenPSG/rectable/internal/config"
	"github.com/OpenPSG/rectable/internal/logging"
	"github.com/OpenPSG/rectable/memstore"
	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "rectable:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	cfg    *config.Config
	demo   bool
	zstd   bool
	start  string
	end    string
	output string
	path   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("rectable", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: rectable [flags] (file.edf | -demo)")
		fs.PrintDefaults()
	}

	cfgPath := fs.String("config", "", "config file path")
	channels := fs.String("channels", "", "comma separated channels, the first one drives the rows")
	start := fs.String("start", "", "window start in seconds")
	end := fs.String("end", "", "window end in seconds")
	format := fs.String("format", "", "timestamp format: seconds, none, utc or local")
	exportFormat := fs.String("export", "", "output format: csv or parquet")
	zstd := fs.Bool("zstd", false, "compress the output with zstd")
	output := fs.String("o", "", "output file (default stdout)")
	tz := fs.Int("tz", 0, "timezone offset of the recording in minutes")
	listen := fs.String("listen", "", "serve the HTTP API on this address")
	demo := fs.Bool("demo", false, "use the built-in demo recording")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return nil, err
		}
	}

	// Flags override the config file.
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["channels"] {
		cfg.Query.Channels = splitList(*channels)
	}
	if set["format"] {
		cfg.Query.Format = *format
	}
	if set["export"] {
		cfg.Export.Format = *exportFormat
	}
	if set["zstd"] && *zstd {
		cfg.Export.Compression = "zstd"
	}
	if set["tz"] {
		cfg.TimezoneOffsetMinutes = *tz
	}
	if set["listen"] {
		cfg.Server.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &options{
		cfg:    cfg,
		demo:   *demo,
		zstd:   cfg.Export.Compression == "zstd",
		start:  *start,
		end:    *end,
		output: *output,
	}

	switch {
	case opts.demo && fs.NArg() == 0:
	case !opts.demo && fs.NArg() == 1:
		opts.path = fs.Arg(0)
	default:
		fs.Usage()
		return nil, errors.New("expected exactly one recording: a file or -demo")
	}

	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg := opts.cfg

	level, _ := logging.ParseLevel(cfg.Log.Level)
	logging.Init(stderr, level, cfg.Log.JSON)
	log := logging.Component("cli")

	var store rectable.Store
	if opts.demo {
		store = memstore.Demo()
	} else {
		f, err := edf.OpenFile(opts.path, edf.WithTimezoneOffset(cfg.TimezoneOffsetMinutes))
		if err != nil {
			return err
		}
		defer f.Close()
		store = f
	}

	reader := rectable.NewReader(store,
		rectable.WithLogger(logging.Component("reader")),
		rectable.WithConcurrency(cfg.Concurrency))

	format, _ := rectable.ParseTimestampFormat(cfg.Query.Format)

	if cfg.Server.Listen != "" {
		return serve(ctx, cfg.Server.Listen, api.NewTableAPI(reader, logging.Component("api"), cfg.Query.Channels, format))
	}

	q := rectable.Query{Channels: cfg.Query.Channels, Format: format}
	if len(q.Channels) == 0 {
		if q.Channels, err = reader.Channels(); err != nil {
			return err
		}
	}
	if q.Window, err = parseWindow(opts.start, opts.end); err != nil {
		return err
	}

	t, err := reader.ReadTable(q)
	if err != nil {
		return err
	}
	log.Info("read table", "channels", len(t.Columns), "rows", t.Rows())

	return write(t, cfg, opts, stdout)
}

func write(t *rectable.Table, cfg *config.Config, opts *options, stdout io.Writer) (err error) {
	var w io.Writer = stdout
	if opts.output != "" {
		f, cerr := os.Create(opts.output)
		if cerr != nil {
			return fmt.Errorf("error creating output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if opts.zstd {
		zw, zerr := export.NewZstdWriter(w, cfg.Export.ZstdLevel)
		if zerr != nil {
			return zerr
		}
		defer func() {
			if cerr := zw.Close(); err == nil {
				err = cerr
			}
		}()
		w = zw
	}

	switch cfg.Export.Format {
	case "parquet":
		ct, _ := export.ParseCompressionType(cfg.Export.ParquetCompression)
		popts := export.DefaultParquetOptions()
		popts.Compression = ct
		return export.Parquet(w, t, popts)
	default:
		return export.CSV(w, t)
	}
}

func serve(ctx context.Context, addr string, tableAPI api.TableAPI) error {
	gin.SetMode(gin.ReleaseMode)
	log := logging.Component("server")

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(tableAPI),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func parseWindow(start, end string) (rectable.Window, error) {
	var w rectable.Window
	if start != "" {
		v, err := strconv.ParseFloat(start, 64)
		if err != nil {
			return w, fmt.Errorf("%w: invalid start %q", rectable.ErrConfiguration, start)
		}
		w.Start, w.HasStart = v, true
	}
	if end != "" {
		v, err := strconv.ParseFloat(end, 64)
		if err != nil {
			return w, fmt.Errorf("%w: invalid end %q", rectable.ErrConfiguration, end)
		}
		w.End, w.HasEnd = v, true
	}
	return w, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Command axtree prints the generated tree of a page as snapshot JSON.
//
// Usage:
//
//	axtree -url https://example.com              # fetch, escalate to Chrome if needed
//	axtree -url https://example.com -mode browser
//	axtree -file page.html -annotated out.html   # static walk, write stamped HTML
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hazyhaar/axtree/axsnap"
	"github.com/hazyhaar/axtree/internal/config"
	"github.com/hazyhaar/axtree/snapshot"
)

type options struct {
	url       string
	file      string
	config    string
	attr      string
	mode      string
	prune     bool
	annotated string
}

func main() {
	var o options
	flag.StringVar(&o.url, "url", "", "page URL to snapshot")
	flag.StringVar(&o.file, "file", "", "walk a local HTML file instead of fetching")
	flag.StringVar(&o.config, "config", "", "path to axtree.yaml")
	flag.StringVar(&o.attr, "attr", "", "correlation attribute (default data-ax-id)")
	flag.StringVar(&o.mode, "mode", "", "acquisition mode: static, browser, auto")
	flag.BoolVar(&o.prune, "prune", false, "drop invisible nodes and collapse single-child chains")
	flag.StringVar(&o.annotated, "annotated", "", "write the stamped HTML to this path (static sources)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "usage: axtree -url <url> | -file <path> [-config f.yaml] [-attr name] [-mode static|browser|auto] [-prune] [-annotated out.html]")
			os.Exit(2)
		}
		logger.Error("axtree: fatal", "error", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.config != "" {
		var err error
		if cfg, err = config.LoadFile(o.config); err != nil {
			return nil, err
		}
	}
	if o.attr != "" {
		cfg.Attribute = o.attr
	}
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.prune {
		cfg.Prune = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, logger *slog.Logger, o options, stdout io.Writer) error {
	if o.url == "" && o.file == "" {
		return errUsage
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	s := axsnap.New(cfg, logger)
	defer s.Close()

	var snap *snapshot.Snapshot
	if o.file != "" {
		snap, err = snapshotFile(ctx, s, o)
	} else {
		snap, err = s.FromURL(ctx, o.url)
	}
	if err != nil {
		return err
	}

	if o.annotated != "" {
		if snap.Annotated == nil {
			logger.Warn("axtree: no annotated HTML available", "path", o.annotated)
		} else if err := os.WriteFile(o.annotated, snap.Annotated, 0o644); err != nil {
			return fmt.Errorf("write annotated: %w", err)
		}
	}

	data, err := snapshot.MarshalIndent(snap)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	_, err = stdout.Write(data)
	return err
}

// snapshotFile walks a local file. The page URL is -url when given, the
// file URL otherwise.
func snapshotFile(ctx context.Context, s *axsnap.Snapshotter, o options) (*snapshot.Snapshot, error) {
	html, err := os.ReadFile(o.file)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	pageURL := o.url
	if pageURL == "" {
		abs, err := filepath.Abs(o.file)
		if err != nil {
			abs = o.file
		}
		pageURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return s.FromHTML(ctx, pageURL, html)
}

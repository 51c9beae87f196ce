package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/saturnino-fabrica-de-software/emojify/internal/config"
	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
	"github.com/saturnino-fabrica-de-software/emojify/internal/emoji"
	"github.com/saturnino-fabrica-de-software/emojify/internal/face"
	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("emojify", flag.ContinueOnError)
	in := fs.String("in", "", "Input photo (JPEG, PNG or WebP)")
	out := fs.String("out", "", "Output file, the extension selects png or jpeg (default: <in>.emojified.<OUTPUT_FORMAT>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)

	outPath := *out
	if outPath == "" {
		outPath = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".emojified." + cfg.OutputFormat
	}
	format, err := imagecodec.ParseFormat(filepath.Ext(outPath))
	if err != nil {
		return fmt.Errorf("invalid output file: %w", err)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opener, err := face.NewOpener(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create face provider: %w", err)
	}
	if closer, ok := opener.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	assets, err := emoji.LoadEmbedded()
	if cfg.EmojiAssetDir != "" {
		assets, err = emoji.LoadDir(cfg.EmojiAssetDir)
	}
	if err != nil {
		return fmt.Errorf("failed to load emoji assets: %w", err)
	}

	svc := service.NewEmojifyService(opener, assets, emoji.NewClassifier(logger), logger,
		service.WithOutputFormat(format),
		service.WithDetectionTimeout(cfg.DetectionTimeout),
	)

	result, err := svc.Emojify(ctx, data)
	if err != nil {
		return err
	}

	if result.FacesCount() == 0 {
		fmt.Fprintln(stdout, domain.NoticeNoFaces)
		return nil
	}

	if err := os.WriteFile(outPath, result.Image, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	for i, f := range result.Faces {
		status := "applied"
		if !f.Applied {
			status = "skipped"
		}
		fmt.Fprintf(stdout, "face %d: %s (%s)\n", i+1, f.Expression, status)
	}
	for _, notice := range result.Notices {
		fmt.Fprintln(stdout, notice)
	}
	fmt.Fprintf(stdout, "wrote %s (%dx%d, %d faces, provider %s)\n",
		outPath, result.Width, result.Height, result.FacesCount(), result.Provider)

	logger.Debug("emojify finished", slog.Int64("latency_ms", result.LatencyMs))

	return nil
}

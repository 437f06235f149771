// Command scan extracts text from one or more images through the remote scan
// service and writes one Markdown artifact per image into scan.output_dir.
// Usage: go run ./cmd/scan photo.png [more.jpg ...]
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"personashield/internal/config"
	"personashield/internal/scan"
	"personashield/internal/storage/local"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: scan FILE [FILE ...]")
		os.Exit(2)
	}

	failed, err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func run(files []string) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Scan.BaseURL == "" {
		return 0, fmt.Errorf("scan.base_url is not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := scan.NewRunner(
		scan.NewClient(&cfg.Scan),
		local.NewArtifactStore(cfg.Scan.OutputDir),
		scan.RunnerConfigFrom(cfg),
	)
	fileInterval := time.Duration(cfg.Scan.FileIntervalSecs) * time.Second

	failed := 0
	for i, path := range files {
		if i > 0 && fileInterval > 0 {
			select {
			case <-ctx.Done():
				return failed + len(files) - i, nil
			case <-time.After(fileInterval):
			}
		}

		res, err := runner.Run(ctx, path)
		if err != nil {
			failed++
			reportFailure(path, err)
			continue
		}
		fmt.Printf("%s -> %s (request %s)\n", path, res.OutputPath, res.Job.RequestID)
	}

	log.Printf("scan: %d of %d files succeeded", len(files)-failed, len(files))
	return failed, nil
}

func reportFailure(path string, err error) {
	scanErr, ok := scan.AsError(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return
	}
	if scanErr.RequestID != "" {
		fmt.Fprintf(os.Stderr, "%s: failed at %s with code %d (request %s): %v\n",
			path, scanErr.Step, scanErr.Code(), scanErr.RequestID, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s: failed at %s with code %d: %v\n", path, scanErr.Step, scanErr.Code(), err)
}

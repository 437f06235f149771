package scan

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"personashield/internal/config"
	"personashield/internal/domain"
	"personashield/internal/port"
)

// ArtifactExt is the extension of rendered scan artifacts.
const ArtifactExt = ".md"

// RunnerConfig holds the settings for one scan run.
type RunnerConfig struct {
	Model        string
	PollInterval time.Duration
	// MaxWait bounds the polling phase. Zero disables the bound; the run can
	// then only end early through ctx.
	MaxWait  time.Duration
	Location *time.Location
	// Verbose logs every status observation, not only terminal ones.
	Verbose bool
}

// RunnerConfigFrom builds a RunnerConfig from the scan and log config.
func RunnerConfigFrom(cfg *config.Config) RunnerConfig {
	return RunnerConfig{
		Model:        cfg.Scan.Model,
		PollInterval: time.Duration(cfg.Scan.PollIntervalSecs) * time.Second,
		MaxWait:      time.Duration(cfg.Scan.MaxWaitSecs) * time.Second,
		Location:     cfg.Scan.Location(),
		Verbose:      cfg.Log.Debug(),
	}
}

// RunResult describes a successful scan run.
type RunResult struct {
	Job        domain.ScanJob
	OutputPath string
}

// Runner drives one file through submit, poll and fetch, then writes the
// rendered text through the artifact store.
type Runner struct {
	client port.ScanClient
	store  port.ArtifactStore
	cfg    RunnerConfig
}

// NewRunner creates a Runner.
func NewRunner(client port.ScanClient, store port.ArtifactStore, cfg RunnerConfig) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Runner{client: client, store: store, cfg: cfg}
}

// Run scans the file at filePath and returns where the artifact was written.
// Every failure is a *Error; failures after submission carry the request ID.
func (r *Runner) Run(ctx context.Context, filePath string) (*RunResult, error) {
	return r.RunWith(ctx, filePath, nil)
}

// RunWith is Run with the artifact written through store instead of the
// runner's own store. A nil store uses the runner's.
func (r *Runner) RunWith(ctx context.Context, filePath string, store port.ArtifactStore) (*RunResult, error) {
	if store == nil {
		store = r.store
	}
	job := domain.ScanJob{SourceFilePath: filePath}
	filename := filepath.Base(filePath)

	content, err := readSource(filePath)
	if err != nil {
		log.Printf("scan.Runner.Run: reading %s: %v", filePath, err)
		return nil, &Error{Step: StepRead, Kind: KindInvalidInput, Err: err}
	}

	requestID, err := r.client.Submit(ctx, port.SubmitInput{
		FileBytes: content,
		Filename:  filename,
		Model:     r.cfg.Model,
	})
	if err != nil {
		log.Printf("scan.Runner.Run: failed to scan %s: %v", filename, err)
		return nil, err
	}
	job.RequestID = requestID
	job.Status = domain.ScanStatusSubmitted

	if err := r.awaitCompletion(ctx, &job); err != nil {
		return nil, err
	}

	result, err := r.client.FetchResult(ctx, requestID)
	if err != nil {
		log.Printf("scan.Runner.Run: failed to get result for %s: %v", requestID, err)
		return nil, withRequestID(err, requestID)
	}

	outputPath, err := store.Save(ctx, ArtifactName(filename), []byte(result.Text()))
	if err != nil {
		log.Printf("scan.Runner.Run: failed to write artifact for %s at %s: %v",
			requestID, time.Now().In(r.cfg.Location).Format(time.RFC3339), err)
		return nil, &Error{Step: StepPersist, Kind: KindPersistence, RequestID: requestID, Err: err}
	}

	return &RunResult{Job: job, OutputPath: outputPath}, nil
}

// awaitCompletion polls until the job is completed. A failed job, a call
// error, ctx cancellation or the MaxWait bound end the loop with an error.
func (r *Runner) awaitCompletion(ctx context.Context, job *domain.ScanJob) error {
	var deadline <-chan time.Time
	if r.cfg.MaxWait > 0 {
		timer := time.NewTimer(r.cfg.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		snap, err := r.client.PollStatus(ctx, job.RequestID)
		if err != nil {
			log.Printf("scan.Runner.Run: failed to get progress for %s: %v", job.RequestID, err)
			return withRequestID(err, job.RequestID)
		}
		job.Status = snap.Status
		if r.cfg.Verbose {
			log.Printf("scan.Runner.Run: %s status: %s", job.RequestID, snap.Status)
		}

		switch snap.Status {
		case domain.ScanStatusCompleted:
			at := snap.Time(r.cfg.Location)
			job.CompletedAt = &at
			log.Printf("scan.Runner.Run: scanning completed: %s at %s", job.SourceFilePath, at.Format(time.RFC3339))
			return nil
		case domain.ScanStatusFailed:
			at := snap.Time(r.cfg.Location)
			job.FailedAt = &at
			log.Printf("scan.Runner.Run: scanning failed: %s at %s (request %s)",
				job.SourceFilePath, at.Format(time.RFC3339), job.RequestID)
			return &Error{
				Step:      StepPoll,
				Kind:      KindJobFailed,
				RequestID: job.RequestID,
				Err:       fmt.Errorf("remote job reported failed at %s", at.Format(time.RFC3339)),
			}
		}

		wait := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return &Error{Step: StepPoll, Kind: KindCanceled, RequestID: job.RequestID, Err: ctx.Err()}
		case <-deadline:
			wait.Stop()
			return &Error{
				Step:      StepPoll,
				Kind:      KindTimeout,
				RequestID: job.RequestID,
				Err:       fmt.Errorf("last status %q after %s", job.Status, r.cfg.MaxWait),
			}
		case <-wait.C:
		}
	}
}

// ArtifactName maps a source file name to its artifact name: the extension
// is replaced by ArtifactExt. A name that is only an extension, such as
// ".png", keeps it and becomes ".png.md".
func ArtifactName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = filename
	}
	return base + ArtifactExt
}

func readSource(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return content, nil
}

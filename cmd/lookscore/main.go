// Command lookscore submits outfit photos to a lookscore server and prints
// the analysis once it finishes.
//
//	lookscore analyze -server http://localhost:8080 -category casual photo.jpg
//	lookscore status -server http://localhost:8080 <job-id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/kiranshivaraju/lookscore/internal/client"
	"github.com/kiranshivaraju/lookscore/internal/imageprep"
	"github.com/kiranshivaraju/lookscore/pkg/models"
)

const usage = `usage:
  lookscore analyze [flags] image...
  lookscore status  [flags] job-id`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "lookscore:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "analyze":
		return runAnalyze(ctx, args[1:], stdout)
	case "status":
		return runStatus(ctx, args[1:], stdout)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

type commonFlags struct {
	server  string
	timeout time.Duration
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.server, "server", envOr("LOOKSCORE_SERVER", "http://localhost:8080"), "server base URL")
	fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "per-request HTTP timeout")
}

func runAnalyze(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	category := fs.String("category", "casual", "category to score, or \"all\"")
	language := fs.String("language", "en", "response language (en, tr)")
	plan := fs.String("plan", "free", "subscription plan label")
	maxDim := fs.Int("max-dim", imageprep.DefaultMaxDimension, "downscale images so no side exceeds this")
	poll := fs.Duration("poll", client.DefaultPollInterval, "status poll interval")
	wait := fs.Duration("wait", 5*time.Minute, "give up waiting after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("analyze: at least one image file is required")
	}

	images := make([]string, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		encoded, err := imageprep.Encode(data, *maxDim)
		if err != nil {
			return fmt.Errorf("preparing %s: %w", path, err)
		}
		images = append(images, encoded)
	}

	c := client.NewHTTPClient(common.server, *poll, common.timeout)
	jobID, err := c.Start(ctx, models.AnalysisRequest{
		Images:   images,
		Category: *category,
		Language: *language,
		Plan:     *plan,
	})
	if err != nil {
		return fmt.Errorf("starting analysis: %w", err)
	}
	slog.Info("analysis started", "job_id", jobID)

	waitCtx, cancel := context.WithTimeout(ctx, *wait)
	defer cancel()

	st, err := c.Wait(waitCtx, jobID)
	if err != nil {
		return fmt.Errorf("waiting for job %s: %w", jobID, err)
	}
	if err := printStatus(stdout, jobID, st); err != nil {
		return err
	}
	if st.Status == models.JobStatusFailed {
		return fmt.Errorf("analysis failed: %s", st.Error)
	}
	return nil
}

func runStatus(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("status: exactly one job id is required")
	}

	jobID := fs.Arg(0)
	st, err := client.NewHTTPClient(common.server, 0, common.timeout).Status(ctx, jobID)
	if err != nil {
		return fmt.Errorf("reading job %s: %w", jobID, err)
	}
	return printStatus(stdout, jobID, st)
}

func printStatus(w io.Writer, jobID string, st models.JobStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		JobID string `json:"jobId"`
		models.JobStatus
	}{jobID, st})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

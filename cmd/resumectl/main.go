package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/app"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/async"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/drive"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/ingest"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/repository"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/search"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	jobFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "job", Aliases: []string{"j"}, Usage: "job id", Required: true}
	}

	return &cli.App{
		Name:  "resumectl",
		Usage: "Ingest resume folders and search the resulting profiles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides LOG_LEVEL",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "submit",
				Usage:  "Create an ingestion job for a Drive folder and queue it",
				Action: submitCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Drive folder URL or id", Required: true},
					&cli.StringFlag{Name: "namespace", Aliases: []string{"n"}, Usage: "vector namespace", Required: true},
					&cli.BoolFlag{Name: "inline", Usage: "run the job in this process instead of publishing it to JetStream"},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Run a local directory of resumes through the pipeline synchronously",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "directory to ingest", Required: true},
					&cli.StringFlag{Name: "namespace", Aliases: []string{"n"}, Usage: "vector namespace", Value: "local"},
					&cli.BoolFlag{Name: "include-hidden", Usage: "also ingest dot files and directories"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write an XLSX job report to this path"},
					&cli.BoolFlag{Name: "inmem", Usage: "use an in-memory SQLite database and vector index"},
				},
			},
			{
				Name:   "status",
				Usage:  "Show a job and its files",
				Action: statusCommand,
				Flags:  []cli.Flag{jobFlag()},
			},
			{
				Name:   "jobs",
				Usage:  "List recent jobs",
				Action: jobsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "maximum jobs to list", Value: 20},
				},
			},
			{
				Name:   "export",
				Usage:  "Write an XLSX report of a job's files",
				Action: exportCommand,
				Flags: []cli.Flag{
					jobFlag(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path (default <job>.xlsx)"},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about ingested resumes",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "namespace", Aliases: []string{"n"}, Usage: "restrict to a namespace"},
					&cli.StringFlag{Name: "last", Usage: "previously presented question, used as vector context"},
					&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "maximum results", Value: search.DefaultTopK},
					&cli.BoolFlag{Name: "vector-fallback", Usage: "use vector search when no profile matches", Value: true},
				},
			},
			{
				Name:   "dbhealth",
				Usage:  "Check database connectivity and schema",
				Action: dbhealthCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Usage: "ping timeout", Value: time.Second},
				},
			},
		},
	}
}

func setup(c *cli.Context) (*common.Config, *slog.Logger) {
	cfg := common.LoadConfig()
	if lvl := c.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, app.NewLogger(cfg)
}

func open(c *cli.Context, inMemory bool) (*app.App, context.Context, context.CancelFunc, error) {
	cfg, logger := setup(c)
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	a, err := app.New(ctx, cfg, logger, inMemory)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return a, ctx, stop, nil
}

func submitCommand(c *cli.Context) error {
	a, ctx, stop, err := open(c, false)
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	var (
		submitter async.Submitter
		queue     async.Queue
	)
	if c.Bool("inline") {
		src, err := a.DriveSource(ctx)
		if err != nil {
			return err
		}
		orch, err := a.Orchestrator(src)
		if err != nil {
			return err
		}
		runner := async.NewRunner(orch, retryPolicy(a.Config), a.Logger)
		queue = async.NewProcessorQueue(runner, a.Logger,
			async.WithWorkers(1),
			async.WithProcessTimeout(a.Config.Worker.TaskTimeout),
		)
		submitter = queue
	} else {
		js, err := async.NewJetStreamQueue(ctx, jetStreamConfig(a.Config), a.Logger)
		if err != nil {
			return err
		}
		defer js.Close()
		submitter = js
	}

	job, err := ingest.Submit(ctx, a.Jobs, submitter, c.String("folder"), c.String("namespace"), a.Logger)
	if err != nil {
		return err
	}
	if queue != nil {
		queue.Shutdown(ctx)
		if job, err = a.Jobs.Get(context.WithoutCancel(ctx), job.ID); err != nil {
			return err
		}
	}
	return printJSON(job)
}

func ingestCommand(c *cli.Context) error {
	a, ctx, stop, err := open(c, c.Bool("inmem"))
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	src, err := drive.NewLocalSource(c.String("dir"), !c.Bool("include-hidden"), a.Logger)
	if err != nil {
		return err
	}
	orch, err := a.Orchestrator(src, ingest.WithFolderResolver(func(ref string) (string, error) {
		return ref, nil
	}))
	if err != nil {
		return err
	}

	job, err := a.Jobs.Create(ctx, src.Root(), c.String("namespace"))
	if err != nil {
		return err
	}
	if err := orch.RunJob(ctx, job.ID, job.Namespace); err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := writeReport(ctx, a, job.ID, out); err != nil {
			return err
		}
	}
	return printStatus(ctx, a.Jobs, a.Files, job.ID)
}

func statusCommand(c *cli.Context) error {
	a, ctx, stop, err := open(c, false)
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	id, err := parseJobID(c.String("job"))
	if err != nil {
		return err
	}
	return printStatus(ctx, a.Jobs, a.Files, id)
}

func jobsCommand(c *cli.Context) error {
	a, ctx, stop, err := open(c, false)
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	jobs, err := a.Jobs.List(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(jobs)
}

func exportCommand(c *cli.Context) error {
	a, ctx, stop, err := open(c, false)
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	id, err := parseJobID(c.String("job"))
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = id.String() + ".xlsx"
	}
	return writeReport(ctx, a, id, out)
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}
	a, ctx, stop, err := open(c, false)
	if err != nil {
		return err
	}
	defer stop()
	defer a.Close()

	res, err := a.Search().Ask(ctx, search.Request{
		Question:          question,
		LastQuestion:      c.String("last"),
		Namespace:         c.String("namespace"),
		TopK:              c.Int("top-k"),
		AllowVectorSearch: c.Bool("vector-fallback"),
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func dbhealthCommand(c *cli.Context) error {
	cfg, logger := setup(c)
	if cfg.Database.DSN == "" && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("DB_URL or SQLITE_PATH env var is required")
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	store, err := repository.Open(ctx, repository.Config{
		DSN:         cfg.Database.DSN,
		SQLitePath:  cfg.Database.SQLitePath,
		MaxConns:    2,
		DialTimeout: 3 * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening DB: %w", err)
	}
	defer store.Close(logger)

	if err := repository.HealthCheck(ctx, store.DB, c.Duration("timeout"), logger); err != nil {
		return fmt.Errorf("DB health: FAIL (%w)", err)
	}
	jobs, err := repository.NewJobRepository(store.DB, logger).List(ctx, 1)
	if err != nil {
		return fmt.Errorf("DB schema: FAIL (%w)", err)
	}
	fmt.Printf("DB health: OK (%s, %d recent job(s))\n", store.Dialect, len(jobs))
	return nil
}

func writeReport(ctx context.Context, a *app.App, id uuid.UUID, out string) error {
	data, err := a.Export().JobReportXLSX(ctx, id)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.Logger.Info("export.written", "job_id", id, "path", out, "bytes", len(data))
	return nil
}

func printStatus(ctx context.Context, jobs repository.JobRepository, files repository.FileRepository, id uuid.UUID) error {
	job, err := jobs.Get(ctx, id)
	if err != nil {
		return err
	}
	recs, err := files.ListByJob(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"job": job, "files": recs})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseJobID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, common.NewAppError("INVALID_JOB_ID", fmt.Sprintf("invalid job id %q", s), common.ErrInvalidInput)
	}
	return id, nil
}

func retryPolicy(cfg *common.Config) async.RetryPolicy {
	return async.RetryPolicy{MaxRetries: cfg.Worker.MaxRetries, Delay: cfg.Worker.RetryDelay}
}

func jetStreamConfig(cfg *common.Config) async.JetStreamConfig {
	return async.JetStreamConfig{
		URL:     cfg.Queue.URL,
		Stream:  cfg.Queue.Stream,
		Subject: cfg.Queue.Subject,
		Durable: cfg.Queue.Durable,
		AckWait: cfg.Worker.TaskTimeout + 5*time.Minute,
	}
}

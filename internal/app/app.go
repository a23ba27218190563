package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/drive"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/embed"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/export"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/ingest"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/llm"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/llm/openai"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/profile"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/repository"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/search"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/textextract"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/vectors"
)

// App holds the long-lived collaborators shared by the binaries.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Store     *repository.Store
	Jobs      repository.JobRepository
	Files     repository.FileRepository
	Completer llm.Completer // nil without GROQ_API_KEY
	Embedder  *embed.Generator
	Publisher *vectors.Publisher

	qdrant *vectors.QdrantIndex
}

// NewLogger installs a JSON slog handler at the configured level as default.
func NewLogger(cfg *common.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return logger
}

// New opens the store, runs migrations and builds the model, embedding and
// vector clients. When inMemory is set an in-memory SQLite store replaces
// the configured database.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, inMemory bool) (*App, error) {
	dbCfg := repository.Config{
		DSN:              cfg.Database.DSN,
		SQLitePath:       cfg.Database.SQLitePath,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
	if inMemory {
		dbCfg.DSN = ""
		dbCfg.SQLitePath = ":memory:"
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(ctx, store.DB, store.Dialect, logger); err != nil {
		store.Close(logger)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Jobs:   repository.NewJobRepository(store.DB, logger),
		Files:  repository.NewFileRepository(store.DB, logger),
	}

	if cfg.LLM.APIKey != "" {
		c, err := openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("llm client: %w", err)
		}
		a.Completer = c
	} else {
		logger.Warn("app.llm.disabled", "reason", "GROQ_API_KEY not set; heuristic profiles only")
	}

	var model embed.Model
	switch cfg.Embed.Provider {
	case "hash":
		model = embed.NewHashModel(cfg.Embed.Dimension)
	default:
		m, err := embed.NewOpenAIModel(embed.OpenAIConfig{
			BaseURL: cfg.Embed.BaseURL,
			APIKey:  cfg.Embed.APIKey,
			Model:   cfg.Embed.Model,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("embedding model: %w", err)
		}
		model = m
	}
	a.Embedder, err = embed.NewGenerator(model, embed.WithPrefixing(cfg.Embed.Prefixing), embed.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	var index vectors.Index
	switch {
	case cfg.Vector.Host != "":
		q, err := vectors.NewQdrantIndex(vectors.QdrantConfig{
			Host:       cfg.Vector.Host,
			Port:       cfg.Vector.Port,
			APIKey:     cfg.Vector.APIKey,
			UseTLS:     cfg.Vector.UseTLS,
			Collection: cfg.Vector.Collection,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("vector index: %w", err)
		}
		a.qdrant = q
		index = q
	case inMemory:
		index = vectors.NewMemoryIndex()
	default:
		logger.Warn("app.vectors.disabled", "reason", "QDRANT_HOST not set; files will fail with INDEX_UNAVAILABLE")
	}
	a.Publisher = vectors.NewPublisher(index, logger)
	return a, nil
}

// DriveSource builds the Drive client from the configured credentials.
func (a *App) DriveSource(ctx context.Context) (*drive.Client, error) {
	if !a.Config.DriveConfigured() {
		return nil, common.NewAppError(common.CodeConfig,
			"GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET/GOOGLE_REFRESH_TOKEN is required",
			common.ErrInvalidInput)
	}
	d := a.Config.Drive
	return drive.New(ctx, drive.Config{
		ClientID:           d.ClientID,
		ClientSecret:       d.ClientSecret,
		RefreshToken:       d.RefreshToken,
		ServiceAccountFile: d.ServiceAccountFile,
	}, a.Logger)
}

// Orchestrator wires the ingestion pipeline over src.
func (a *App) Orchestrator(src drive.Source, opts ...ingest.Option) (*ingest.Orchestrator, error) {
	ex := a.Config.Extract
	extractor := textextract.NewExtractor(textextract.Config{
		Pdftotext:      ex.Pdftotext,
		Pdftoppm:       ex.Pdftoppm,
		Tesseract:      ex.Tesseract,
		Soffice:        ex.Soffice,
		TesseractLang:  ex.OCRLang,
		DPI:            ex.OCRDPI,
		MinChars:       ex.MinTextChars,
		TempDir:        ex.TempDir,
		CommandTimeout: ex.CommandTimeout,
	}, a.Logger)

	var model profile.Builder
	if a.Completer != nil {
		mb, err := profile.NewModelBuilder(a.Completer, a.Logger)
		if err != nil {
			return nil, err
		}
		model = mb
	}

	opts = append([]ingest.Option{ingest.WithMaxPDFBytes(ex.MaxPDFBytes)}, opts...)
	return ingest.NewOrchestrator(ingest.Deps{
		Source:    src,
		Extractor: extractor,
		Profiles:  profile.NewChain(model, a.Logger),
		Embedder:  a.Embedder,
		Publisher: a.Publisher,
		Jobs:      a.Jobs,
		Files:     a.Files,
	}, a.Logger, opts...), nil
}

func (a *App) Search() *search.Service {
	var index search.VectorQuerier
	if a.Publisher.Configured() {
		index = a.Publisher
	}
	return search.NewService(a.Files, search.NewClassifier(a.Completer, a.Logger), a.Embedder, index, a.Logger)
}

func (a *App) Export() *export.Service {
	return export.NewService(a.Jobs, a.Files, a.Logger)
}

func (a *App) Close() {
	if a.qdrant != nil {
		if err := a.qdrant.Close(); err != nil {
			a.Logger.Warn("app.vectors.close_failed", "error", err)
		}
	}
	if a.Store != nil {
		a.Store.Close(a.Logger)
	}
}

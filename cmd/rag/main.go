package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"productrag/internal/catalog"
	"productrag/internal/config"
	"productrag/internal/embedding"
	"productrag/internal/embedding/ollama"
	"productrag/internal/embedding/openai"
	"productrag/internal/embedding/tfidf"
	"productrag/internal/generation"
	genollama "productrag/internal/generation/ollama"
	genopenai "productrag/internal/generation/openai"
	"productrag/internal/logging"
	"productrag/internal/repl"
	"productrag/internal/service"
	"productrag/internal/tui"
	"productrag/internal/vectorstore"
	"productrag/internal/vectorstore/memory"
	"productrag/internal/vectorstore/postgres"
	"productrag/internal/vectorstore/qdrant"
	"productrag/internal/vectorstore/sqlite"
)

const usage = `Usage:
  rag [--config=config.yaml] setup [--data=file.json] [--reset]
  rag [--config=config.yaml] search --query="..."
  rag [--config=config.yaml] search --interactive
  rag [--config=config.yaml] search --chat [--tui]`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/rag/config.yaml if not provided)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "setup":
		err = runSetup(ctx, cfg, args[1:])
	case "search":
		err = runSearch(ctx, cfg, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		log.Fatal(err)
	}
}

func runSetup(ctx context.Context, cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	dataPath := fs.String("data", cfg.DataPath, "Path to the product seed file")
	reset := fs.Bool("reset", false, "Drop existing products before loading")
	_ = fs.Parse(args)

	log.WithField("data", *dataPath).Info("Running setup")
	products, err := catalog.Load(*dataPath)
	if err != nil {
		return err
	}
	emb, err := newEmbedder(cfg, *dataPath)
	if err != nil {
		return err
	}
	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := ingestor(cfg, emb, st, *reset).Setup(ctx, products)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	fmt.Printf("Data loaded successfully! (%d products)\n", n)
	return nil
}

func runSearch(ctx context.Context, cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "Search query")
	interactive := fs.Bool("interactive", false, "Answer queries in a loop without conversation memory")
	chat := fs.Bool("chat", false, "Multi-turn conversation that remembers previous turns")
	useTUI := fs.Bool("tui", false, "Use the full-screen chat interface (with --chat)")
	_ = fs.Parse(args)

	modes := 0
	for _, set := range []bool{*query != "", *interactive, *chat} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return errors.New("search needs exactly one of --query, --interactive or --chat")
	}

	emb, err := newEmbedder(cfg, cfg.DataPath)
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// The memory store starts empty in every process.
	if cfg.VectorStore.Type == "memory" {
		products, err := catalog.Load(cfg.DataPath)
		if err != nil {
			return err
		}
		if _, err := ingestor(cfg, emb, st, false).Setup(ctx, products); err != nil {
			return fmt.Errorf("load catalog into memory: %w", err)
		}
	}

	pipeline := service.NewPipeline(
		service.NewRetriever(emb, st, service.RetrieverConfig{
			Model:         cfg.Embedder.Model,
			EmbedTimeout:  seconds(cfg.Embedder.TimeoutSecs),
			SearchTimeout: seconds(cfg.VectorStore.TimeoutSecs),
		}),
		service.NewComposer(cfg.Retrieval.DescriptionLimit),
		service.NewResponseGenerator(gen, cfg.Generator.Model, seconds(cfg.Generator.TimeoutSecs)),
		service.Options{TopK: cfg.Retrieval.TopK},
	)

	switch {
	case *query != "":
		log.WithField("query", *query).Info("Executing search")
		fmt.Printf("\nResponse:\n%s\n", pipeline.Run(ctx, *query))
		return nil
	case *interactive:
		session := service.NewSession(pipeline, service.ModeContinuous, cfg.Retrieval.HistoryTurns)
		return repl.New(session, os.Stdin, os.Stdout).Start(ctx)
	case *useTUI:
		// Log lines would tear the full-screen layout.
		f, err := os.OpenFile("rag.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.SetOutput(io.Discard)
		} else {
			defer f.Close()
			log.SetOutput(f)
		}
		session := service.NewSession(pipeline, service.ModeMultiTurn, cfg.Retrieval.HistoryTurns)
		_, err = tea.NewProgram(tui.New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			fmt.Println(service.Farewell)
			return nil
		}
		return err
	default:
		session := service.NewSession(pipeline, service.ModeMultiTurn, cfg.Retrieval.HistoryTurns)
		return repl.New(session, os.Stdin, os.Stdout).Start(ctx)
	}
}

func ingestor(cfg *config.AppConfig, emb embedding.Embedder, st vectorstore.Storage, reset bool) *service.Ingestor {
	return service.NewIngestor(emb, st, service.IngestConfig{
		Model:        cfg.Embedder.Model,
		EmbedTimeout: seconds(cfg.Embedder.TimeoutSecs),
		Reset:        reset,
	})
}

// newEmbedder builds the configured embedder. The tfidf embedder is fitted on
// the descriptions in dataPath.
func newEmbedder(cfg *config.AppConfig, dataPath string) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "ollama":
		emb = ollama.NewClient(ollama.Config{
			BaseURL:    cfg.Embedder.Ollama.BaseURL,
			Model:      cfg.Embedder.Model,
			Timeout:    seconds(cfg.Embedder.TimeoutSecs),
			MaxRetries: cfg.Embedder.MaxRetries,
		})
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv:  cfg.Embedder.OpenAI.APIKeyEnv,
			Model:      cfg.Embedder.Model,
			Timeout:    seconds(cfg.Embedder.TimeoutSecs),
			MaxRetries: cfg.Embedder.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	case "tfidf":
		products, err := catalog.Load(dataPath)
		if err != nil {
			return nil, err
		}
		corpus := make([]string, len(products))
		for i, p := range products {
			corpus[i] = p.Description
		}
		t := tfidf.NewEmbedder()
		if err := t.Prepare(corpus); err != nil {
			return nil, fmt.Errorf("tfidf embedder init failed: %w", err)
		}
		emb = t
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
	if cfg.Embedder.CacheSize > 0 {
		return embedding.NewCached(emb, cfg.Embedder.CacheSize)
	}
	return emb, nil
}

func newGenerator(cfg *config.AppConfig) (generation.Generator, error) {
	switch cfg.Generator.Type {
	case "ollama":
		return genollama.NewClient(genollama.Config{
			BaseURL:    cfg.Generator.Ollama.BaseURL,
			Model:      cfg.Generator.Model,
			Timeout:    seconds(cfg.Generator.TimeoutSecs),
			MaxRetries: cfg.Generator.MaxRetries,
		}), nil
	case "openai":
		client, err := genopenai.NewClient(genopenai.Config{
			BaseURL:     cfg.Generator.OpenAI.BaseURL,
			APIKeyEnv:   cfg.Generator.OpenAI.APIKeyEnv,
			Model:       cfg.Generator.Model,
			MaxTokens:   cfg.Generator.MaxTokens,
			Temperature: cfg.Generator.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}
}

func newStore(ctx context.Context, cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "postgres":
		pg := cfg.VectorStore.Postgres
		return postgres.New(ctx, postgres.Config{
			Host:     pg.Host,
			Port:     pg.Port,
			Database: pg.Database,
			User:     pg.User,
			Password: pg.Password,
			SSLMode:  pg.SSLMode,
			Table:    pg.Table,
			MaxConns: pg.MaxConns,
		})
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    seconds(q.TimeoutSecs),
		}), nil
	case "sqlite":
		return sqlite.New(cfg.VectorStore.SQLite.Path)
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

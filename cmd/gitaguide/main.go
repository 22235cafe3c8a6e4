// Package main is the gitaguide CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/gitaguide/internal/cli"
	"github.com/hyperjump/gitaguide/internal/config"
	"github.com/hyperjump/gitaguide/internal/embedding"
	"github.com/hyperjump/gitaguide/internal/guidance"
	"github.com/hyperjump/gitaguide/internal/ingest"
	"github.com/hyperjump/gitaguide/internal/models"
	"github.com/hyperjump/gitaguide/internal/retrieval"
	"github.com/hyperjump/gitaguide/internal/server"
	"github.com/hyperjump/gitaguide/internal/storage"
	"github.com/hyperjump/gitaguide/internal/vector"
	"github.com/hyperjump/gitaguide/internal/watcher"
	"github.com/hyperjump/gitaguide/pkg/utils"
)

var version = "dev"

const defaultServerURL = "http://localhost:8080"

// exitNoMatch is the exit status when a question matched no verse.
const exitNoMatch = 2

// loadConfig resolves path (falling back to ./config.yaml for the default path) and loads it.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	resolved := config.ResolvePath(path)
	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	return cfg, resolved, nil
}

func main() {
	// GEMINI_API_KEY and friends may live in a local .env file
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "search":
		runSearch()
	case "keywords":
		runKeywords()
	case "verse":
		runVerse()
	case "ingest":
		runIngest()
	case "embed":
		runEmbed()
	case "related":
		runRelated()
	case "status":
		runStatus()
	case "reload":
		runReload()
	case "version", "--version", "-v":
		fmt.Printf("gitaguide version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config and creates the logger for direct (non-server) commands.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (reloads, ingest, prompts)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Strings("sources", cfg.Ingest.Sources),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger, componentOptions{ingest: true, generator: true})
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// the server still starts without verses; /status reports ready=false until a reload succeeds
	if st, err := components.Load(ctx); err != nil {
		logger.Warn("initial verse load failed", zap.Error(err))
	} else {
		logger.Info("verses loaded", zap.Int("verses", st.Verses), zap.Int("chapters", st.Chapters))
	}

	if cfg.Ingest.Watch && len(cfg.Ingest.Sources) > 0 {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.NewWatcher(cfg.Ingest.Sources, ingest.DefaultExtensions, components.Reloader.OnSourcesChanged, watchOpts...)
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("watching verse sources", zap.Strings("paths", w.Sources()))
	}

	srv := server.NewServer(
		components.Composer,
		components.Retriever,
		components.Storage,
		cfg,
		logger,
		server.WithReloader(components.Reloader),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// buildSearchQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the question
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so `gitaguide ask "why act" -max 3`
// would otherwise leave -max unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// queryFlags are shared by ask and search.
type queryFlags struct {
	configPath *string
	serverURL  *string
	maxResults *int
	output     *string
	debug      *bool
}

func parseQueryFlags(name, usage string) (*flag.FlagSet, queryFlags, string, cli.OutputFormat) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	qf := queryFlags{
		configPath: fs.String("config", config.DefaultPath, "config file path (direct mode)"),
		serverURL:  fs.String("server", defaultServerURL, "server URL (empty = read the local database directly)"),
		maxResults: fs.Int("max", 0, "maximum verses (0 = configured default)"),
		output:     fs.String("output", "text", "output format: text or json"),
		debug:      fs.Bool("debug", false, "enable debug logging (direct mode)"),
	}
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: gitaguide %s [flags] <question>\n\n%s\n\n", name, usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	question := buildSearchQuery(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*qf.output)
	if err != nil {
		fatalf("%v", err)
	}
	return fs, qf, question, format
}

// reportQueryError prints err and exits. Questions that matched nothing exit with
// exitNoMatch after listing the keywords tried and suggestions.
func reportQueryError(op string, err error) {
	var nm *guidance.NoMatchError
	if errors.As(err, &nm) {
		cli.WriteNoMatch(os.Stderr, nm.Keywords, nm.Suggestions)
		os.Exit(exitNoMatch)
	}
	var apiErr *cli.APIError
	if errors.As(err, &apiErr) && apiErr.NoMatch() {
		if apiErr.Keywords == nil && apiErr.Suggestions == nil {
			fmt.Fprintln(os.Stderr, apiErr.Message)
		} else {
			cli.WriteNoMatch(os.Stderr, apiErr.Keywords, apiErr.Suggestions)
		}
		os.Exit(exitNoMatch)
	}
	fatalf("%s failed: %v", op, err)
}

// directComponents opens the local database and installs its verses.
func directComponents(ctx context.Context, qf queryFlags, generator bool) (*Components, *zap.Logger) {
	cfg, logger := setup(*qf.configPath, *qf.debug)
	components, err := initializeComponents(ctx, cfg, logger, componentOptions{generator: generator})
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	if _, err := components.Load(ctx); err != nil {
		components.Close()
		if errors.Is(err, retrieval.ErrStoreUnavailable) {
			fatalf("No verses in %s; run \"gitaguide ingest\" first", cfg.Storage.DatabasePath)
		}
		fatalf("Failed to load verses: %v", err)
	}
	return components, logger
}

func runAsk() {
	_, qf, question, format := parseQueryFlags("ask",
		"Asks for guidance. The answer is grounded in the verses whose text contains the question's keywords.")
	ctx := context.Background()
	query := &models.GuidanceQuery{Query: question, MaxResults: *qf.maxResults}

	var (
		answer *models.Guidance
		err    error
	)
	if *qf.serverURL != "" {
		answer, err = cli.NewClient(*qf.serverURL).Guidance(ctx, query)
	} else {
		components, logger := directComponents(ctx, qf, true)
		defer logger.Sync()
		defer components.Close()
		answer, err = components.Composer.Compose(ctx, query)
	}
	if err != nil {
		reportQueryError("Guidance", err)
	}
	if err := cli.WriteGuidance(os.Stdout, answer, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runSearch() {
	_, qf, question, format := parseQueryFlags("search",
		"Lists the verses matching the question's keywords, in chapter and verse order.")
	ctx := context.Background()
	query := &models.GuidanceQuery{Query: question, MaxResults: *qf.maxResults}

	var (
		result *models.RetrievalResult
		err    error
	)
	if *qf.serverURL != "" {
		result, err = cli.NewClient(*qf.serverURL).Search(ctx, query)
	} else {
		components, logger := directComponents(ctx, qf, false)
		defer logger.Sync()
		defer components.Close()
		result, err = components.Composer.Search(ctx, query)
	}
	if err != nil {
		reportQueryError("Search", err)
	}
	if err := cli.WriteRetrieval(os.Stdout, result, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runKeywords() {
	fs := flag.NewFlagSet("keywords", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (stop words and limits)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	question := buildSearchQuery(fs.Args())
	if question == "" {
		fmt.Println("Usage: gitaguide keywords [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	extractor := retrieval.NewExtractor(retrieval.DefaultExtractorConfig())
	if cfg, _, err := loadConfig(*configPath); err == nil {
		extractor = retrieval.NewExtractor(cfg.ExtractorConfig())
	}
	if err := cli.WriteKeywords(os.Stdout, question, extractor.Extract(question), format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runVerse() {
	fs := flag.NewFlagSet("verse", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: gitaguide verse [flags] <chapter.verse>   e.g. 2.47")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	chapter, label, err := models.ParseReference(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	v, err := store.GetVerse(context.Background(), chapter, label)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fatalf("Verse %s not found", fs.Arg(0))
		}
		fatalf("Lookup failed: %v", err)
	}
	if err := cli.WriteVerse(os.Stdout, v, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	sources := fs.Args()
	if len(sources) == 0 {
		sources = cfg.Ingest.Sources
	}
	if len(sources) == 0 {
		fatalf("No sources: pass files or directories, or set ingest.sources in the config")
	}

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, componentOptions{})
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	report, err := components.Ingester.Run(ctx, sources)
	if err != nil {
		fatalf("Ingest failed: %v", err)
	}
	if err := cli.WriteIngestReport(os.Stdout, report, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	embedder, err := embedding.New(cfg.EmbeddingOptions())
	if err != nil {
		fatalf("Failed to create embedder: %v", err)
	}
	defer embedder.Close()

	idx, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		fatalf("Failed to create vector index: %v", err)
	}
	ctx := context.Background()
	start := time.Now()
	n, err := embedVerses(ctx, store, embedder, idx)
	if err != nil {
		fatalf("Embedding failed after %d verses: %v", n, err)
	}
	if err := idx.Save(cfg.Storage.VectorIndexPath); err != nil {
		fatalf("Failed to save vector index: %v", err)
	}
	logger.Info("verses embedded",
		zap.Int("verses", n),
		zap.String("model", embedder.Name()),
		zap.Int("dimensions", embedder.Dimensions()),
		zap.Duration("took", time.Since(start)),
	)
	fmt.Printf("Embedded %d verses with %s into %s\n", n, embedder.Name(), cfg.Storage.VectorIndexPath)
}

func runRelated() {
	fs := flag.NewFlagSet("related", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	limit := fs.Int("limit", 5, "number of related verses")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	if fs.NArg() != 1 {
		fmt.Println("Usage: gitaguide related [flags] <chapter.verse>   e.g. 2.47")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	ref := fs.Arg(0)
	if _, _, err := models.ParseReference(ref); err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	idx, err := loadVectorIndex(ctx, store, cfg.Storage.VectorIndexPath)
	if err != nil {
		fatalf("%v", err)
	}
	neighbors, err := idx.Related(ctx, ref, *limit)
	if err != nil {
		if errors.Is(err, vector.ErrUnknownReference) {
			fatalf("Verse %s has no embedding; use the full reference of a merged range, e.g. 1.16-18", ref)
		}
		fatalf("Related lookup failed: %v", err)
	}
	if err := cli.WriteRelated(os.Stdout, ref, neighbors, versesByReference(ctx, store, neighbors), format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the local database directly)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	ctx := context.Background()
	var status map[string]interface{}
	if *serverURL != "" {
		status, err = cli.NewClient(*serverURL).Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		status, err = localStatus(ctx, cfg)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// localStatus reports stored counts and disk usage without starting the server.
func localStatus(ctx context.Context, cfg *config.Config) (map[string]interface{}, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	status := map[string]interface{}{}
	counts := map[string]func(context.Context) (int64, error){
		"stored_verses": store.CountVerses,
		"embeddings":    store.CountEmbeddings,
		"reflections":   store.CountReflections,
	}
	for name, count := range counts {
		n, err := count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		status[name] = n
	}
	status["config"] = map[string]interface{}{
		"matcher":           cfg.Retrieval.Matcher,
		"llm_provider":      cfg.LLM.Provider,
		"database_path":     cfg.Storage.DatabasePath,
		"bleve_index_path":  cfg.Storage.BleveIndexPath,
		"vector_index_path": cfg.Storage.VectorIndexPath,
	}
	usage, total, err := storage.DiskUsage(map[string]string{
		"database":     cfg.Storage.DatabasePath,
		"bleve_index":  cfg.Storage.BleveIndexPath,
		"vector_index": cfg.Storage.VectorIndexPath,
	})
	if err == nil {
		status["disk_usage"] = usage
		status["disk_usage_bytes"] = total
	}
	return status, nil
}

func runReload() {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fatalf("%v", err)
	}
	st, err := cli.NewClient(*serverURL).Reload(context.Background())
	if err != nil {
		fatalf("Reload failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func printUsage() {
	fmt.Println(`gitaguide - Bhagavad Gita guidance grounded in keyword-matched verses

Usage:
  gitaguide server [flags]                Start the HTTP server
  gitaguide ask [flags] <question>        Ask for guidance
  gitaguide search [flags] <question>     List the verses matching a question
  gitaguide keywords [flags] <question>   Show the keywords extracted from a question
  gitaguide verse [flags] <ref>           Show one verse, e.g. 2.47
  gitaguide ingest [flags] [paths...]     Load verse sources into the database
  gitaguide embed [flags]                 Embed stored verses for "related"
  gitaguide related [flags] <ref>         Show verses similar to a verse
  gitaguide status [flags]                Show corpus, storage and config status
  gitaguide reload [flags]                Ask the server to reload its verses
  gitaguide version                       Show version
  gitaguide help                          Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/gitaguide/config.yaml)
  --debug            Enable debug logging

Ask/Search Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read the local database directly.
  --max int          Maximum verses (default from config)
  --output string    Output format: text or json (default: text)

A question that matches no verse exits with status 2 and lists the keywords tried
together with similar words found in the verses.

Environment:
  GEMINI_API_KEY     Gemini API key (also read from ./.env)

Examples:
  gitaguide ingest ./data/gita.json
  gitaguide server
  gitaguide ask "how do I stop worrying about results"
  gitaguide search --max 3 duty and action
  gitaguide ask --server "" --output json "what is the nature of the self"
  gitaguide related 2.47`)
}

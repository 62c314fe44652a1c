// Command autotag tags products, records corrections, and manages the
// model artifacts from the command line.
//
// Usage:
//
//	autotag tag -db products.db -id 42
//	autotag batch -db products.db -limit 100
//	autotag feedback -db products.db -id 42 -category 액상 -reviewer kim
//	autotag info -db products.db
//	autotag retrain -db products.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cognicore/autotag/pkg/autotag"
	"github.com/cognicore/autotag/pkg/autotag/config"
	"github.com/cognicore/autotag/pkg/autotag/store"
	"github.com/cognicore/autotag/pkg/autotag/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "tag":
		runTag(args)
	case "batch":
		runBatch(args)
	case "feedback":
		runFeedback(args)
	case "info":
		runInfo(args)
	case "retrain":
		runRetrain(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: autotag <tag|batch|feedback|info|retrain> [flags]")
}

// newEngine wires config, logger, and the sqlite store into an engine.
// Callers must Close it.
func newEngine(ctx context.Context, dbPath string, verbose bool) *autotag.Engine {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	st, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		log.Fatalf("open store %s: %v", dbPath, err)
	}

	engine, err := autotag.New(ctx, autotag.Options{
		Store:  st,
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		st.Close()
		log.Fatalf("start engine: %v", err)
	}
	return engine
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal output: %v", err)
	}
	fmt.Println(string(out))
}

func runTag(args []string) {
	fs := flag.NewFlagSet("tag", flag.ExitOnError)
	var (
		dbPath  = fs.String("db", "products.db", "SQLite database path")
		id      = fs.Int64("id", 0, "Product id (required)")
		apply   = fs.Bool("apply", false, "Write the prediction back to the store")
		verbose = fs.Bool("v", false, "Verbose logging")
	)
	fs.Parse(args)

	if *id == 0 {
		log.Fatal("-id required")
	}

	ctx := context.Background()
	engine := newEngine(ctx, *dbPath, *verbose)
	defer engine.Close()

	result, err := engine.TagProduct(ctx, *id)
	if err != nil {
		log.Fatalf("tag product: %v", err)
	}

	if *apply {
		if err := engine.ApplyResult(ctx, result); err != nil {
			log.Fatalf("apply tags: %v", err)
		}
	}
	printJSON(result)
}

func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var (
		dbPath  = fs.String("db", "products.db", "SQLite database path")
		limit   = fs.Int("limit", 100, "Maximum untagged products to process")
		verbose = fs.Bool("v", false, "Verbose logging")
	)
	fs.Parse(args)

	ctx := context.Background()
	engine := newEngine(ctx, *dbPath, *verbose)
	defer engine.Close()

	result, err := engine.BatchTag(ctx, *limit)
	if err != nil {
		log.Fatalf("batch tag: %v", err)
	}
	printJSON(result)
}

func runFeedback(args []string) {
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	var (
		dbPath      = fs.String("db", "products.db", "SQLite database path")
		id          = fs.Int64("id", 0, "Product id (required)")
		company     = fs.String("company", "", "Corrected company")
		category    = fs.String("category", "", "Corrected category")
		tags        = fs.String("tags", "", "Corrected tags (pipe-delimited)")
		productName = fs.String("product-name", "", "Corrected canonical product name")
		reviewer    = fs.String("reviewer", "", "Reviewer id")
		verbose     = fs.Bool("v", false, "Verbose logging")
	)
	fs.Parse(args)

	if *id == 0 {
		log.Fatal("-id required")
	}
	if *company == "" && *category == "" && *tags == "" && *productName == "" {
		log.Fatal("at least one corrected field required")
	}

	ctx := context.Background()
	engine := newEngine(ctx, *dbPath, *verbose)
	defer engine.Close()

	corrected := store.TagFields{
		Company:     *company,
		Category:    *category,
		Tags:        *tags,
		ProductName: *productName,
	}
	if err := engine.ProcessFeedback(ctx, *id, corrected, *reviewer); err != nil {
		log.Fatalf("record feedback: %v", err)
	}
	fmt.Println("feedback recorded")
}

func runInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var (
		dbPath  = fs.String("db", "products.db", "SQLite database path")
		verbose = fs.Bool("v", false, "Verbose logging")
	)
	fs.Parse(args)

	ctx := context.Background()
	engine := newEngine(ctx, *dbPath, *verbose)
	defer engine.Close()

	printJSON(engine.ModelInfo())
}

func runRetrain(args []string) {
	fs := flag.NewFlagSet("retrain", flag.ExitOnError)
	var (
		dbPath  = fs.String("db", "products.db", "SQLite database path")
		verbose = fs.Bool("v", false, "Verbose logging")
	)
	fs.Parse(args)

	ctx := context.Background()
	engine := newEngine(ctx, *dbPath, *verbose)
	defer engine.Close()

	if err := engine.Retrain(ctx); err != nil {
		log.Fatalf("retrain: %v", err)
	}
	printJSON(engine.ModelInfo())
}

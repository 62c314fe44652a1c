// Command bootstrap initializes a product database and trains the first
// artifact set. It optionally seeds the database from a JSONL file where
// each line is one product record:
//
//	{"platform":"naverCommerce","seller_id":"s1","sale_name":"고드름 입호흡 액상",
//	 "company":"고드름","category":"액상","tags":"입호흡액상|30ml","data":{...}}
package main

import (
	"bufio"
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

// seedRecord is the JSONL shape accepted by -seed.
type seedRecord struct {
	Platform    string          `json:"platform"`
	SellerID    string          `json:"seller_id"`
	SaleName    string          `json:"sale_name"`
	ProductName string          `json:"product_name"`
	Company     string          `json:"company"`
	Category    string          `json:"category"`
	Tags        string          `json:"tags"`
	Data        json.RawMessage `json:"data"`
}

func main() {
	var (
		dbPath   = flag.String("db", "products.db", "SQLite database path")
		seedPath = flag.String("seed", "", "Optional JSONL file of products to load")
		train    = flag.Bool("train", true, "Train the initial artifact set after seeding")
		verbose  = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatalf("open store %s: %v", *dbPath, err)
	}
	defer st.Close()
	logger.Info().Str("db", *dbPath).Msg("database ready")

	if *seedPath != "" {
		n, err := seed(ctx, st, *seedPath)
		if err != nil {
			log.Fatalf("seed from %s: %v", *seedPath, err)
		}
		logger.Info().Int("records", n).Str("file", *seedPath).Msg("seeded products")
	}

	if !*train {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine, err := autotag.New(ctx, autotag.Options{
		Store:  st,
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("train initial models: %v", err)
	}

	info := engine.ModelInfo()
	fmt.Printf("artifact version %s: %d companies, %d categories, %d tag labels\n",
		info.Version, info.LabelCounts["company"], info.LabelCounts["category"], info.LabelCounts["tags"])
}

// seed upserts every JSONL line as a product record. Blank lines are
// skipped; a malformed line aborts with its line number.
func seed(ctx context.Context, st store.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	n := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var sr seedRecord
		if err := json.Unmarshal(raw, &sr); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if sr.SaleName == "" {
			return n, fmt.Errorf("line %d: sale_name required", line)
		}

		rec := store.ProductRecord{
			Platform:    sr.Platform,
			SellerID:    sr.SellerID,
			SaleName:    sr.SaleName,
			ProductName: sr.ProductName,
			Company:     sr.Company,
			Category:    sr.Category,
			Tags:        sr.Tags,
			Data:        sr.Data,
		}
		if _, err := st.UpsertProduct(ctx, rec); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
	return n, scanner.Err()
}

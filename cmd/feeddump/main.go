// Command feeddump prints the normalized cyclone records of an NHC feed,
// either from a saved XML file or fetched live. It uses the same parser and
// report formatting as the relay, so it doubles as a preview of what a run
// would post.
//
// Usage:
//
//	go run ./cmd/feeddump -file internal/adapter/nhc/testdata/index-at.xml -basin at
//	go run ./cmd/feeddump -basins at,ep -digest
//	go run ./cmd/feeddump -file index-at.xml -out fixtures/at.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/adapter/nhc"
	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/couchcryptid/cyclone-relay/internal/relay"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	file := flag.String("file", "", "saved feed XML to parse instead of fetching")
	basin := flag.String("basin", "at", "basin of -file (at, ep, cp)")
	baseURL := flag.String("base-url", "https://www.nhc.noaa.gov", "NHC base URL for live fetches and image links")
	basins := flag.String("basins", "at,ep", "comma-separated basins to fetch live")
	out := flag.String("out", "", "write records as indented JSON to this path instead of stdout")
	digest := flag.Bool("digest", false, "print the digest and broadcast bodies instead of JSON")
	flag.Parse()

	client := nhc.NewClient(*baseURL, strings.Split(*basins, ","), 15*time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	var (
		records []domain.CycloneRecord
		err     error
	)
	if *file != "" {
		records, err = parseFile(*file, *basin)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		records, err = client.Cyclones(ctx)
	}
	if err != nil {
		return err
	}
	log.Printf("%d active cyclones", len(records))

	if *digest {
		printReports(os.Stdout, client, records)
		return nil
	}
	if *out != "" {
		if err := writeJSON(*out, records); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		log.Printf("wrote %s", *out)
		printStats(records)
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func parseFile(path, basin string) ([]domain.CycloneRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return nhc.ParseFeed(f, basin)
}

func printReports(w io.Writer, images relay.ImageSource, records []domain.CycloneRecord) {
	now := time.Now()
	if len(records) == 0 {
		fmt.Fprintln(w, relay.NoActiveBody(now))
		return
	}
	fmt.Fprintln(w, "--- digest ---")
	fmt.Fprintln(w, relay.DigestBody(records, images.ConeImageURL, now))
	for _, rec := range records {
		fmt.Fprintf(w, "\n--- broadcast %s ---\n", rec.ATCFID)
		fmt.Fprintln(w, relay.BroadcastBody(rec))
		fmt.Fprintln(w, images.ConeImageURL(rec))
	}
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.CycloneRecord) {
	byClass := map[string]int{}
	byBasin := map[string]int{}
	for _, rec := range records {
		byClass[domain.Title(domain.CycloneRecord{Classification: rec.Classification, Category: rec.Category})]++
		byBasin[rec.Basin]++
	}
	printCounts("classification", byClass)
	printCounts("basin", byBasin)
}

func printCounts(label string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Printf("  %s %-28s %d", label, k, counts[k])
	}
}

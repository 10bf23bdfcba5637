// bench-aggregate measures aggregation throughput and retained heap on a
// synthetic event log.
//
// Usage:
//
//	go run ./scripts/bench-aggregate --rows 1000000 --users 5000 --topics 20000 \
//	  --profile-dir docs/profiles/aggregate
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/topicstats/pkg/dashboard"
	"github.com/Sumatoshi-tech/topicstats/pkg/stats"
)

// words feeds the synthetic message bodies.
var words = strings.Fields("the quick brown fox jumps over a lazy dog while planning release notes for next sprint")

func main() {
	rows := flag.Int("rows", 100000, "Event log rows to generate")
	users := flag.Int("users", 1000, "Distinct authors")
	topics := flag.Int("topics", 5000, "Distinct topics")
	seed := flag.Uint64("seed", 1, "Random seed")
	workDir := flag.String("work-dir", "", "Directory for generated inputs (default: temp dir)")
	profileDir := flag.String("profile-dir", "", "Directory to write heap and CPU profiles")

	flag.Parse()

	dir := *workDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "topicstats-bench-")
		if err != nil {
			log.Fatalf("create work dir: %v", err)
		}
		defer os.RemoveAll(tmp)

		dir = tmp
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))

	events := filepath.Join(dir, "fulltext-data.csv")
	metaDir := filepath.Join(dir, "json")

	if err := generateEvents(events, rng, *rows, *users, *topics); err != nil {
		log.Fatalf("generate events: %v", err)
	}

	if err := generateMetadata(metaDir, *topics); err != nil {
		log.Fatalf("generate metadata: %v", err)
	}

	if info, err := os.Stat(events); err == nil {
		log.Printf("generated %s rows (%s)", humanize.Comma(int64(*rows)), humanize.Bytes(uint64(info.Size())))
	}

	if *profileDir != "" {
		if err := os.MkdirAll(*profileDir, 0o755); err != nil {
			log.Fatalf("mkdir profile-dir: %v", err)
		}

		cpuFile, err := os.Create(filepath.Join(*profileDir, "cpu.prof"))
		if err != nil {
			log.Fatalf("create cpu profile: %v", err)
		}
		defer cpuFile.Close()

		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			log.Fatalf("start cpu profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	before := heapInUse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := dashboard.NewBuilder(nooptrace.NewTracerProvider().Tracer("bench"), logger)

	start := time.Now()

	rep, summary, err := builder.Build(context.Background(), dashboard.Inputs{
		Events:         events,
		MetadataDir:    metaDir,
		MetadataSuffix: ".json",
		Policy:         stats.DefaultPolicy(),
	})
	if err != nil {
		log.Fatalf("build: %v", err)
	}

	elapsed := time.Since(start)
	after := heapInUse()

	log.Printf("aggregated %s rows in %s (%.0f rows/s)",
		humanize.Comma(int64(summary.Ingest.Rows)), elapsed, float64(summary.Ingest.Rows)/elapsed.Seconds())
	log.Printf("report: %d users, %d topics, %d days", len(rep.Users), len(rep.Topics), len(rep.GlobalDaily))
	log.Printf("heap in use: %s -> %s", humanize.Bytes(before), humanize.Bytes(after))

	if *profileDir != "" {
		writeHeapProfile(filepath.Join(*profileDir, "heap.prof"))
	}

	runtime.KeepAlive(rep)
}

func generateEvents(path string, rng *rand.Rand, rows, users, topics int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)

	if err := w.Write([]string{"mail", "name", "topic", "text", "timestamp"}); err != nil {
		return err
	}

	origin := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	span := int64(2 * 365 * 24 * time.Hour / time.Second)

	for range rows {
		user := rng.IntN(users)
		at := origin.Add(time.Duration(rng.Int64N(span)) * time.Second)

		record := []string{
			fmt.Sprintf("user%d@example.org", user),
			fmt.Sprintf("User %d", user),
			fmt.Sprintf("%d", rng.IntN(topics)),
			sentence(rng),
			at.Format(stats.TimestampLayout),
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return err
	}

	return buf.Flush()
}

func sentence(rng *rand.Rand) string {
	n := 1 + rng.IntN(40)
	parts := make([]string, n)

	for i := range parts {
		parts[i] = words[rng.IntN(len(words))]
	}

	return strings.Join(parts, " ")
}

func generateMetadata(dir string, topics int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for id := range topics {
		doc, err := json.Marshal(map[string]string{
			"title": fmt.Sprintf("Topic %d", id),
			"url":   fmt.Sprintf("https://example.org/topics/%d", id),
		})
		if err != nil {
			return err
		}

		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("topic_%d.json", id)), doc, 0o600); err != nil {
			return err
		}
	}

	return nil
}

func heapInUse() uint64 {
	runtime.GC()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return ms.HeapInuse
}

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Printf("create heap profile: %v", err)

		return
	}
	defer f.Close()

	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Printf("write heap profile: %v", err)
	}
}

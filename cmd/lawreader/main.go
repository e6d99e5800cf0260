// Command lawreader answers legal questions from the terminal. With -q it
// processes one query and exits; without it, it runs an interactive loop.
// PDF analysis runs through -analyze.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/legalgraph/lawreader"
	"github.com/legalgraph/lawreader/docpipe"
	"github.com/legalgraph/lawreader/llm"
)

func main() {
	query := flag.String("q", "", "Single legal query to process")
	analyze := flag.String("analyze", "", "Path to a PDF document to analyze")
	report := flag.String("report", "", "Write the analysis as an XLSX report to this path (with -analyze)")
	graphPath := flag.String("graph", "", "Path to the legal graph file")
	threshold := flag.Float64("threshold", 0, "Similarity threshold for scenario matching (0-1)")
	forceLLM := flag.Bool("force-llm", false, "Skip graph matching and use the LLM directly")
	debug := flag.Bool("debug", false, "Show debug information")
	jsonOut := flag.Bool("json", false, "Print results as JSON")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(*debug),
	})))

	// .env is optional; real environment variables win.
	godotenv.Load()

	cfg := lawreader.DefaultConfig()
	if *graphPath != "" {
		cfg.GraphPath = *graphPath
	}
	if *threshold > 0 {
		cfg.MatchThreshold = float32(*threshold)
	}
	if v := os.Getenv("LAWREADER_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("LAWREADER_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}

	reader, err := lawreader.New(cfg)
	if err != nil {
		slog.Error("initializing", "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	ctx := context.Background()

	if *analyze != "" {
		runAnalyze(ctx, cfg, reader, *analyze, *report, *jsonOut)
		return
	}

	if *query != "" {
		var opts []lawreader.QueryOption
		if *forceLLM {
			opts = append(opts, lawreader.WithForceLLM())
		}
		res, err := reader.ProcessQuery(ctx, *query, opts...)
		if err != nil {
			slog.Error("processing query", "error", err)
			os.Exit(1)
		}
		printResult(res, *debug, *jsonOut)
		if !res.Success {
			os.Exit(1)
		}
		return
	}

	interactive(ctx, reader, *debug)
}

func logLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

func runAnalyze(ctx context.Context, cfg lawreader.Config, reader lawreader.Reader, path, reportPath string, jsonOut bool) {
	chat, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		slog.Error("creating chat provider", "error", err)
		os.Exit(1)
	}

	analyzer := docpipe.NewAnalyzer(chat, reader.Store())
	analysis, err := analyzer.Analyze(ctx, path)
	if err != nil {
		slog.Error("analyzing document", "path", path, "error", err)
		os.Exit(1)
	}

	if jsonOut {
		json.NewEncoder(os.Stdout).Encode(analysis)
	} else {
		printAnalysis(analysis)
	}

	if reportPath != "" {
		if err := docpipe.WriteReport(reportPath, analysis); err != nil {
			slog.Error("writing report", "path", reportPath, "error", err)
			os.Exit(1)
		}
		fmt.Printf("\nReport written to %s\n", reportPath)
	}
}

func interactive(ctx context.Context, reader lawreader.Reader, debug bool) {
	fmt.Println("LawReader - Interactive Mode")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Ask legal questions about Indian law.")
	fmt.Println("Type 'quit', 'exit', or 'q' to stop.")
	fmt.Println("Type 'debug' to toggle debug information.")
	fmt.Println("Type 'stats' to see graph statistics.")
	fmt.Println(strings.Repeat("=", 50))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nLegal Query: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		case "debug":
			debug = !debug
			fmt.Printf("Debug mode: %v\n", debug)
			continue
		case "stats":
			printStats(reader)
			continue
		}

		fmt.Println("\n" + strings.Repeat("=", 50))
		res, err := reader.ProcessQuery(ctx, line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printResult(res, debug, false)
	}
}

func printResult(res *lawreader.Result, debug, jsonOut bool) {
	if jsonOut {
		json.NewEncoder(os.Stdout).Encode(res)
		return
	}

	fmt.Println("\nANSWER:")
	fmt.Println(res.Answer)

	if debug {
		fmt.Println("\nDEBUG INFO:")
		fmt.Printf("   Method: %s\n", res.MethodUsed)
		fmt.Printf("   Success: %v\n", res.Success)
		fmt.Printf("   Time: %.2fs\n", res.ProcessingTime)

		keys := make([]string, 0, len(res.DebugInfo))
		for k := range res.DebugInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("   %s: %v\n", k, res.DebugInfo[k])
		}
	}
}

func printStats(reader lawreader.Reader) {
	stats := reader.GraphStats()

	fmt.Println("\nGRAPH STATISTICS:")
	fmt.Printf("   Total Nodes: %d\n", stats.Nodes)
	fmt.Printf("   Total Edges: %d\n", stats.Edges)
	fmt.Printf("   Auto-generated Nodes: %d\n", stats.AutoGenerated)

	fmt.Println("\n   Node Types:")
	for _, t := range sortedKeys(stats.NodeTypes) {
		fmt.Printf("     %s: %d\n", t, stats.NodeTypes[t])
	}
	fmt.Println("\n   Edge Types:")
	for _, t := range sortedKeys(stats.EdgeTypes) {
		fmt.Printf("     %s: %d\n", t, stats.EdgeTypes[t])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printAnalysis(a *docpipe.Analysis) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("LEGAL DOCUMENT ANALYSIS RESULTS")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\nFile: %s\n", a.Path)
	fmt.Printf("Document Type: %s\n", a.DocType.Label)
	fmt.Printf("Confidence: %.3f\n", a.DocType.Confidence)
	fmt.Printf("Pages: %d\n", a.Pages)
	fmt.Printf("Text Length: %d characters\n", a.TextLength)
	fmt.Printf("Segments Found: %d\n", len(a.Segments))
	fmt.Printf("Total Citations: %d\n", a.TotalCitations)

	for i, seg := range a.Segments {
		fmt.Printf("\n%d. %s\n", i+1, seg.Label)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println("SUMMARY:")
		fmt.Println(seg.Summary)

		if seg.Citations.Total() > 0 {
			fmt.Println("\nCITATIONS:")
			seg.Citations.Each(func(category, text string) {
				fmt.Printf("  [%s] %s\n", strings.ReplaceAll(category, "_", " "), text)
			})
		}
	}
}

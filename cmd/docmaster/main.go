package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/travisleebounds/Beta-Gold/config"
	"github.com/travisleebounds/Beta-Gold/internal/engine"
	"github.com/travisleebounds/Beta-Gold/internal/index"
	"github.com/travisleebounds/Beta-Gold/internal/ingest"
	"github.com/travisleebounds/Beta-Gold/internal/logger"
	"github.com/travisleebounds/Beta-Gold/internal/report"
	"github.com/travisleebounds/Beta-Gold/internal/search"
	"github.com/travisleebounds/Beta-Gold/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd {
	case "status":
		runErr = runStatus(ctx, cfg, args)
	case "ingest":
		runErr = runIngest(ctx, cfg, args)
	case "batch":
		runErr = runBatch(ctx, cfg, args)
	case "search":
		runErr = runSearch(ctx, cfg, args)
	case "report":
		runErr = runReport(ctx, cfg, args)
	case "docs":
		runErr = runDocs(ctx, cfg, args)
	case "remove":
		runErr = runRemove(ctx, cfg, args)
	default:
		usage()
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage:
  docmaster status
  docmaster ingest [-tier gold|standard|archive] [-recursive] [-force] <file-or-dir>
  docmaster batch [-tier gold|standard|archive] [-force] [-restart] [-plain] <dir>
  docmaster search [-k N] [-tier T] [-no-boost] <query>
  docmaster report [-kind brief|comprehensive] [-name N] [-party P] [-area A] [-plain] <member-id>
  docmaster docs
  docmaster remove <filename>`)
}

func newEngine(ctx context.Context, cfg *config.Config) (*engine.Master, error) {
	return engine.New(ctx, cfg)
}

func runStatus(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	data, err := json.MarshalIndent(m.Status(ctx), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	tierName := fs.String("tier", "standard", "document tier")
	recursive := fs.Bool("recursive", false, "descend into subdirectories")
	force := fs.Bool("force", false, "re-ingest even when unchanged")
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	if fs.NArg() != 1 {
		return fmt.Errorf("ingest expects one path")
	}
	path := fs.Arg(0)

	tier, err := index.ParseTier(*tierName)
	if err != nil {
		return err
	}

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var results []ingest.Result
	if info.IsDir() {
		results, err = m.IngestDirectory(ctx, path, tier, *recursive, *force)
		if err != nil {
			return err
		}
	} else {
		res, err := m.IngestFile(ctx, path, tier, *force)
		if err != nil {
			fmt.Printf("  %s: %s (%s)\n", res.File, res.Status, res.Reason)
			return err
		}
		results = []ingest.Result{res}
	}

	for _, r := range results {
		if r.Status == ingest.StatusError {
			fmt.Printf("  %s: %s (%s)\n", r.File, r.Status, r.Reason)
		} else {
			fmt.Printf("  %s: %s (%d chunks)\n", r.File, r.Status, r.Chunks)
		}
	}
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	tierName := fs.String("tier", "standard", "document tier")
	force := fs.Bool("force", false, "re-ingest even when unchanged")
	restart := fs.Bool("restart", false, "discard any prior checkpoint")
	plain := fs.Bool("plain", false, "plain line output instead of the progress view")
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	if fs.NArg() != 1 {
		return fmt.Errorf("batch expects one directory")
	}
	dir := fs.Arg(0)

	tier, err := index.ParseTier(*tierName)
	if err != nil {
		return err
	}

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	opts := ingest.BatchOptions{Tier: tier, Force: *force, Restart: *restart}

	var cp *ingest.Checkpoint
	if *plain {
		opts.OnProgress = func(p ingest.Progress) {
			fmt.Printf("  [%d/%d] %s: %s\n", p.Processed, p.Total, p.File, p.Result.Status)
		}
		cp, err = m.RunBatch(ctx, dir, opts)
	} else {
		batchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		cp, err = tui.RunBatch(func(onProgress func(ingest.Progress)) (*ingest.Checkpoint, error) {
			opts.OnProgress = onProgress
			return m.RunBatch(batchCtx, dir, opts)
		}, cancel)
	}
	if cp != nil {
		fmt.Printf("batch %s: %d ingested, %d skipped, %d errors (%d files)\n",
			cp.JobID, cp.Stats.Ingested, cp.Stats.Skipped, cp.Stats.Errors, cp.Stats.Total)
		for _, fe := range cp.Errors {
			fmt.Printf("  failed: %s (%s)\n", fe.File, fe.Reason)
		}
	}
	return err
}

func runSearch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	topK := fs.Int("k", 0, "number of results")
	tierName := fs.String("tier", "", "restrict to one tier")
	noBoost := fs.Bool("no-boost", false, "rank on raw similarity only")
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	if fs.NArg() == 0 {
		return fmt.Errorf("search expects a query")
	}
	query := strings.Join(fs.Args(), " ")

	opts := search.Options{DisableBoost: *noBoost}
	if *tierName != "" {
		tier, err := index.ParseTier(*tierName)
		if err != nil {
			return err
		}
		opts.TierFilter = tier
	}

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	hits, err := m.Search(ctx, query, *topK, opts)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("no results")
		return nil
	}

	for _, h := range hits {
		preview := h.Content
		if len(preview) > 120 {
			preview = preview[:120] + "..."
		}
		fmt.Printf("  [%s] %s (score %.3f, raw %.3f)\n    %s\n\n",
			h.Tier, h.SourceFile, h.FinalScore, h.Similarity, strings.ReplaceAll(preview, "\n", " "))
	}
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	kindName := fs.String("kind", "brief", "report kind: brief or comprehensive")
	name := fs.String("name", "", "member name")
	party := fs.String("party", "", "member party")
	area := fs.String("area", "Illinois", "member area")
	plain := fs.Bool("plain", false, "print the stream as plain text")
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	if fs.NArg() != 1 {
		return fmt.Errorf("report expects one member id")
	}

	kind, err := report.ParseKind(*kindName)
	if err != nil {
		return err
	}
	member := report.Member{ID: fs.Arg(0), Name: *name, Party: *party, Area: *area}

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	events := m.GenerateReport(ctx, member, kind, "")

	if *plain {
		for ev := range events {
			switch e := ev.(type) {
			case report.StageEvent:
				fmt.Printf("  [%3.0f%%] %s...\n", e.Progress, e.Stage)
			case report.TokenEvent:
				fmt.Print(e.Token)
			case report.DoneEvent:
				fmt.Printf("\n\n--- Report complete (%d sources, %d gold) ---\n", e.Sources, e.GoldSources)
			case report.ErrorEvent:
				return e.Err
			}
		}
		return nil
	}

	text, err := tui.RunReport(events, member, kind)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runDocs(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("docs", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	docs := m.Documents()
	if len(docs) == 0 {
		fmt.Println("no documents indexed")
		return nil
	}
	sort.Slice(docs, func(a, b int) bool { return docs[a].Filename < docs[b].Filename })
	for _, d := range docs {
		fmt.Printf("  %-40s %-8s %5d chunks  %s\n", d.Filename, d.Tier, d.Chunks, d.IngestedAt)
	}
	return nil
}

func runRemove(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "verbose logging")
	fs.Parse(args)
	logger.SetVerbose(*verbose)

	if fs.NArg() != 1 {
		return fmt.Errorf("remove expects one filename")
	}

	m, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.RemoveDocument(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", fs.Arg(0))
	return nil
}

// searchcli — поиск по индексу из командной строки.
//
// Запрос поддерживает операторы date:YYYY-MM-DD..YYYY-MM-DD, from:<канал> и
// sort:(date|relevance):
//
//	searchcli 上海 疫情 date:2024-01-01..2024-03-31 from:shanghainews
//	searchcli --stats
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"telegram-search/internal/cache"
	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
	"telegram-search/internal/search"
	"telegram-search/internal/stats"
)

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	tomlPath := flag.String("config", "configs/app.toml", "path to config file")
	limit := flag.Int("limit", 0, "results per page (0 = default)")
	offset := flag.Int("offset", 0, "pagination offset")
	filter := flag.String("filter", "", "extra engine filter expression")
	sortPref := flag.String("sort", "", "sort preference: date or relevance")
	noCache := flag.Bool("no-cache", false, "bypass the result cache")
	showStats := flag.Bool("stats", false, "print usage stats and exit")
	topK := flag.Int("top", 10, "top keywords to show with --stats")
	flag.Parse()

	logger.Init("warn")
	defer logger.Sync()

	cfg, err := config.Load(*envPath, *tomlPath)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statsSvc := stats.New(cfg.Redis)
	defer func() { _ = statsSvc.Close() }()

	if *showStats {
		printStats(ctx, statsSvc, *topK)
		return
	}

	query := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(os.Stderr, "usage: searchcli [flags] <query>")
		os.Exit(2)
	}

	resultCache := cache.New(cfg.Redis)
	defer func() { _ = resultCache.Close() }()

	svc := search.NewService(search.NewEngine(cfg.Meili), resultCache, cfg.Search)
	resp, err := svc.Search(ctx, query, search.Options{
		Limit:   *limit,
		Offset:  *offset,
		Filter:  *filter,
		Sort:    *sortPref,
		NoCache: *noCache,
	})
	if err != nil {
		// Деталь ошибки уходит в лог, пользователю — общий ответ.
		logger.Errorf("search %q: %v", query, err)
		fatalf("search failed, please retry")
	}

	statsSvc.RecordSearch(ctx, query)

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fatalf("encode results: %v", err)
	}
	fmt.Println(string(out))
}

func printStats(ctx context.Context, svc *stats.Service, topK int) {
	summary, err := svc.Stats(ctx, topK)
	if err != nil {
		fatalf("fetch stats: %v", err)
	}
	fmt.Printf("total searches: %d\n", summary.TotalSearches)
	for i, kw := range summary.TopKeywords {
		fmt.Printf("%2d. %s (%d)\n", i+1, kw.Query, kw.Count)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// channelctl — управление реестром отслеживаемых каналов (configs/channels.json).
//
// Использование:
//
//	channelctl add <channel_id> <username> [title]
//	channelctl remove <channel_id>
//	channelctl list
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"telegram-search/internal/indexer"
	"telegram-search/internal/infra/config"
	"telegram-search/internal/infra/logger"
)

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	tomlPath := flag.String("config", "configs/app.toml", "path to config file")
	flag.Parse()

	logger.Init("warn")
	defer logger.Sync()

	cfg, err := config.Load(*envPath, *tomlPath)
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	registry := indexer.NewRegistry(cfg.Indexer.ChannelsFile)

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	switch args[0] {
	case "add":
		cmdAdd(registry, args[1:])
	case "remove":
		cmdRemove(registry, args[1:])
	case "list":
		cmdList(registry)
	default:
		usage()
	}
}

func cmdAdd(registry *indexer.Registry, args []string) {
	if len(args) < 2 {
		usage()
	}
	channelID := parseChannelID(args[0])
	username := strings.TrimPrefix(args[1], "@")
	title := ""
	if len(args) > 2 {
		title = strings.Join(args[2:], " ")
	}

	ch, err := registry.Add(channelID, username, title)
	if err != nil {
		fatalf("add channel: %v", err)
	}
	fmt.Printf("added channel %d (@%s)\n", ch.ChannelID, ch.Username)
}

func cmdRemove(registry *indexer.Registry, args []string) {
	if len(args) != 1 {
		usage()
	}
	channelID := parseChannelID(args[0])

	removed, err := registry.Remove(channelID)
	if err != nil {
		fatalf("remove channel: %v", err)
	}
	if !removed {
		fatalf("channel %d is not registered", channelID)
	}
	fmt.Printf("removed channel %d\n", channelID)
}

func cmdList(registry *indexer.Registry) {
	channels := registry.List()
	if len(channels) == 0 {
		fmt.Println("no channels registered")
		return
	}
	for _, ch := range channels {
		state := "enabled"
		if !ch.Enabled {
			state = "disabled"
		}
		fmt.Printf("%d\t@%s\t%s\t%s\t(added %s)\n",
			ch.ChannelID, ch.Username, ch.Title, state, ch.AddedAt.Format("2006-01-02"))
	}
}

func parseChannelID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatalf("invalid channel_id %q", s)
	}
	return id
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: channelctl [flags] add <channel_id> <username> [title] | remove <channel_id> | list")
	os.Exit(2)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

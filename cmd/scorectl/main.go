// Command scorectl reads and writes games on a running scorekeeper server.
//
//	scorectl [-addr URL] get ID [ID...]
//	scorectl [-addr URL] save [-id ID] [FILE]
//
// save reads a state object from FILE, or from stdin when FILE is omitted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"guandan-scorekeeper/internal/client"

	"github.com/rs/zerolog"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", envOr("SCOREKEEPER_ADDR", "http://localhost:8080"), "server base URL")
	flag.Usage = usage
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(addr)
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "get":
		err = runGet(ctx, c, args[1:])
	case "save":
		err = runSave(ctx, c, args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", args[0]).Msg("command failed")
		os.Exit(1)
	}
}

func runGet(ctx context.Context, c *client.Client, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("get needs at least one id")
	}
	games, err := c.FetchMany(ctx, ids)
	if err != nil {
		return err
	}
	if len(games) == 1 {
		return printJSON(games[0])
	}
	return printJSON(games)
}

func runSave(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	id := fs.String("id", "", "game id to update (empty creates a new game)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("failed to open state file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var state map[string]any
	if err := json.NewDecoder(in).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	res, err := c.Save(ctx, *id, state)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: scorectl [-addr URL] get ID [ID...]\n")
	fmt.Fprintf(os.Stderr, "       scorectl [-addr URL] save [-id ID] [FILE]\n")
	flag.PrintDefaults()
}

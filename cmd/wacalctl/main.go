package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/eyalbz/wacal/internal/home"
)

func main() {
	socketFlag := flag.String("socket", "", "daemon socket path (default ~/.wacal/daemon.sock)")
	jsonFlag := flag.Bool("json", false, "output raw JSON")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := *socketFlag
	if socketPath == "" {
		socketPath = home.SocketPath()
	}
	c := newClient(socketPath)
	ctx := context.Background()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "entities":
		cmdEntities(ctx, c, args[1:], *jsonFlag)
	case "sync":
		cmdSync(ctx, c, args[1:])
	case "events":
		cmdEvents(ctx, c, args[1:], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wacalctl [--socket <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show daemon status")
	fmt.Fprintln(os.Stderr, "  entities list                   List known chats")
	fmt.Fprintln(os.Stderr, "  entities include <chat>         Include a chat in sync")
	fmt.Fprintln(os.Stderr, "  entities exclude <chat>         Exclude a chat from sync")
	fmt.Fprintln(os.Stderr, "  entities company <chat> <name>  Assign a company name")
	fmt.Fprintln(os.Stderr, "  sync all [--days N] [--async]   Sync every included chat")
	fmt.Fprintln(os.Stderr, "  sync one <chat> [--days N]      Sync a single chat")
	fmt.Fprintln(os.Stderr, "  sync status                     Per-chat last-run outcomes")
	fmt.Fprintln(os.Stderr, "  sync run <id>                   Show async run progress")
	fmt.Fprintln(os.Stderr, "  sync cancel <id>                Cancel an async run")
	fmt.Fprintln(os.Stderr, "  events list [--chat <id>]       List mirrored calendar events")
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func cmdStatus(ctx context.Context, c *client, jsonOut bool) {
	var resp struct {
		UptimeSeconds int64 `json:"uptime_seconds"`
		Messages      int64 `json:"messages"`
		Entities      int   `json:"entities"`
		Included      int   `json:"included"`
	}
	if err := c.call(ctx, "GET", "/v1/status", nil, &resp); err != nil {
		die(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Uptime:   %s\n", time.Duration(resp.UptimeSeconds)*time.Second)
	fmt.Printf("Messages: %d\n", resp.Messages)
	fmt.Printf("Entities: %d (%d included)\n", resp.Entities, resp.Included)
}

type entityView struct {
	ChatID      string `json:"chat_id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	Subject     string `json:"subject"`
	CompanyName string `json:"company_name"`
	Included    bool   `json:"included"`
}

func cmdEntities(ctx context.Context, c *client, args []string, jsonOut bool) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: wacalctl entities <list|include|exclude|company>")
		os.Exit(1)
	}
	switch args[0] {
	case "list":
		var resp struct {
			Entities []entityView `json:"entities"`
		}
		if err := c.call(ctx, "GET", "/v1/entities", nil, &resp); err != nil {
			die(err)
		}
		if jsonOut {
			outputJSON(resp)
			return
		}
		for _, e := range resp.Entities {
			mark := " "
			if e.Included {
				mark = "*"
			}
			name := e.DisplayName
			if e.Kind == "group" {
				name = e.Subject
			}
			if e.CompanyName != "" {
				name = fmt.Sprintf("%s (%s)", name, e.CompanyName)
			}
			fmt.Printf("%s %-30s %s\n", mark, e.ChatID, name)
		}
	case "include", "exclude":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "usage: wacalctl entities %s <chat>\n", args[0])
			os.Exit(1)
		}
		patchEntity(ctx, c, args[1], map[string]any{"included": args[0] == "include"}, jsonOut)
	case "company":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: wacalctl entities company <chat> <name>")
			os.Exit(1)
		}
		patchEntity(ctx, c, args[1], map[string]any{"company_name": args[2]}, jsonOut)
	default:
		fmt.Fprintf(os.Stderr, "unknown entities command: %s\n", args[0])
		os.Exit(1)
	}
}

func patchEntity(ctx context.Context, c *client, chatID string, patch map[string]any, jsonOut bool) {
	var resp entityView
	if err := c.call(ctx, "PATCH", "/v1/entities/"+chatID, patch, &resp); err != nil {
		die(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("updated %s (included=%v)\n", resp.ChatID, resp.Included)
}

func cmdSync(ctx context.Context, c *client, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: wacalctl sync <all|one|status|run|cancel>")
		os.Exit(1)
	}
	switch args[0] {
	case "all", "one":
		fs := flag.NewFlagSet("sync", flag.ExitOnError)
		days := fs.Int("days", 30, "how far back to sync")
		async := fs.Bool("async", false, "start a background run")
		rest := args[1:]
		chatID := ""
		if args[0] == "one" {
			if len(rest) == 0 {
				fmt.Fprintln(os.Stderr, "usage: wacalctl sync one <chat> [--days N] [--async]")
				os.Exit(1)
			}
			chatID = rest[0]
			rest = rest[1:]
		}
		_ = fs.Parse(rest)

		now := time.Now()
		req := map[string]any{
			"kind":     args[0],
			"chat_id":  chatID,
			"start_ms": now.AddDate(0, 0, -*days).UnixMilli(),
			"end_ms":   now.UnixMilli(),
			"async":    *async,
		}
		var resp json.RawMessage
		if err := c.call(ctx, "POST", "/v1/sync", req, &resp); err != nil {
			die(err)
		}
		outputJSON(resp)
	case "status":
		var resp json.RawMessage
		if err := c.call(ctx, "GET", "/v1/sync/status", nil, &resp); err != nil {
			die(err)
		}
		outputJSON(resp)
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: wacalctl sync run <id>")
			os.Exit(1)
		}
		var resp json.RawMessage
		if err := c.call(ctx, "GET", "/v1/sync/runs/"+args[1], nil, &resp); err != nil {
			die(err)
		}
		outputJSON(resp)
	case "cancel":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: wacalctl sync cancel <id>")
			os.Exit(1)
		}
		if err := c.call(ctx, "POST", "/v1/sync/runs/"+args[1]+"/cancel", nil, nil); err != nil {
			die(err)
		}
		fmt.Println("cancel requested")
	default:
		fmt.Fprintf(os.Stderr, "unknown sync command: %s\n", args[0])
		os.Exit(1)
	}
}

func cmdEvents(ctx context.Context, c *client, args []string, jsonOut bool) {
	if len(args) == 0 || args[0] != "list" {
		fmt.Fprintln(os.Stderr, "usage: wacalctl events list [--chat <id>]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	chat := fs.String("chat", "", "filter by chat ID")
	_ = fs.Parse(args[1:])

	path := "/v1/events"
	if *chat != "" {
		path += "?chat_id=" + *chat
	}
	var resp struct {
		Events []struct {
			ChatID       string `json:"chat_id"`
			Title        string `json:"title"`
			StartMs      int64  `json:"start_ms"`
			EndMs        int64  `json:"end_ms"`
			MessageCount int    `json:"message_count"`
		} `json:"events"`
	}
	if err := c.call(ctx, "GET", path, nil, &resp); err != nil {
		die(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	for _, ev := range resp.Events {
		start := time.UnixMilli(ev.StartMs).Format("2006-01-02 15:04")
		end := time.UnixMilli(ev.EndMs).Format("15:04")
		fmt.Printf("%s-%s  %-40s  %d msgs\n", start, end, ev.Title, ev.MessageCount)
	}
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/openagora/agora/internal/client"
	"github.com/openagora/agora/internal/domain"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "debate server base URL")
	details := flag.Bool("details", false, "retain the debate transcript in the conversation")
	flag.Parse()

	_ = godotenv.Load()

	// Diagnostics go to stderr so the conversation stays readable on stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	store := client.NewSettingsStore(settingsPath())
	settings, err := store.Get()
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if *details {
		settings.ShowDebateDetails = true
	}

	c := client.New(*serverURL, client.WithLogger(logger))
	sess := client.NewSession(settings.ShowDebateDetails)

	// One-shot mode: question given as arguments.
	if args := flag.Args(); len(args) > 0 {
		ask(c, sess, settings, strings.Join(args, " "))
		return
	}

	fmt.Println("agora - ask a question, or /help for commands")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(line, store, &settings); quit {
				return
			}
			continue
		}

		ask(c, sess, settings, line)
	}
}

func ask(c *client.Client, sess *client.Session, settings client.Settings, question string) {
	printed := 0
	onUpdate := func() {
		for _, turn := range sess.Turns() {
			if !turn.IsTemp {
				continue
			}
			lines := statusLines(turn.Content)
			for ; printed < len(lines); printed++ {
				fmt.Println("  " + lines[printed])
			}
		}
	}

	req := &domain.DebateRequest{
		Question:             question,
		UserID:               settings.UserID,
		IncludeDebateDetails: settings.ShowDebateDetails,
		MaxIterations:        settings.MaxIterations,
	}

	if err := c.Ask(context.Background(), req, sess, onUpdate); err != nil {
		slog.Default().Error("request failed", slog.String("error", err.Error()))
	}

	turns := sess.Turns()
	if len(turns) > 0 {
		fmt.Println()
		fmt.Println(turns[len(turns)-1].Content)
		fmt.Println()
	}
}

// statusLines strips the progress marker off the in-flight turn so only
// settled status lines are echoed.
func statusLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "⏳") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func runCommand(line string, store *client.SettingsStore, settings *client.Settings) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/details":
		if len(fields) > 1 {
			settings.ShowDebateDetails = fields[1] == "on"
			saveSettings(store, *settings)
		}
		fmt.Printf("debate details: %v\n", settings.ShowDebateDetails)
	case "/iterations":
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				settings.MaxIterations = n
				saveSettings(store, *settings)
			}
		}
		fmt.Printf("max iterations: %d\n", settings.MaxIterations)
	case "/whoami":
		fmt.Println(settings.UserID)
	case "/help":
		fmt.Println("commands: /details on|off, /iterations N, /whoami, /quit")
	default:
		fmt.Println("unknown command; try /help")
	}
	return false
}

func saveSettings(store *client.SettingsStore, s client.Settings) {
	if err := store.Set(s); err != nil {
		slog.Default().Error("failed to save settings", slog.String("error", err.Error()))
	}
}

func settingsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "agora", "settings.json")
	}
	return ".agora-settings.json"
}

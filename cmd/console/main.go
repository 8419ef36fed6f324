package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	PlayerID   string
	Name       string
	Alignment  string
}

func main() {
	cfg := &ConsoleConfig{}
	flagSet := pflag.NewFlagSet("console", pflag.ExitOnError)
	flagSet.StringVar(&cfg.APIBaseURL, "api", getEnv("API_BASE_URL", "http://localhost:8080"), "API base URL")
	flagSet.StringVarP(&cfg.Name, "name", "n", "", "display name to join with")
	flagSet.StringVarP(&cfg.Alignment, "alignment", "a", "", "merciful, tyrannical or corrupt_chancellor")
	flagSet.StringVarP(&cfg.PlayerID, "player", "p", "", "resume as an existing player id instead of joining")
	flagSet.DurationVar(&cfg.Timeout, "timeout", 60*time.Second, "HTTP request timeout")
	_ = flagSet.Parse(os.Args[1:])

	api := NewAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	if cfg.PlayerID == "" {
		if cfg.Name == "" {
			cfg.Name = prompt("Display name: ")
		}
		if cfg.Alignment == "" {
			cfg.Alignment = prompt("Alignment (merciful / tyrannical / corrupt_chancellor, blank to skip): ")
		}
		id, err := api.Join(cfg.Name, cfg.Alignment)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg.PlayerID = id
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := make(chan world.Message, 16)
	listenErr := make(chan error, 1)
	go func() { listenErr <- api.Listen(ctx, cfg.PlayerID, frames) }()

	p := tea.NewProgram(NewConsoleUI(cfg, api, frames),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}

	cancel()
	if err := <-listenErr; err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	fmt.Printf("Player ID: %s\n", cfg.PlayerID)
}

var stdin = bufio.NewReader(os.Stdin)

func prompt(label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

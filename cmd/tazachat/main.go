package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hishamahammedkm/taza-chat-cli/internal/cli"
	"github.com/hishamahammedkm/taza-chat-cli/internal/config"
	"github.com/hishamahammedkm/taza-chat-cli/internal/logger"
	"github.com/hishamahammedkm/taza-chat-cli/internal/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	if cfg.Debug {
		log.Printf("Config: ServerURL=%s, TazaHome=%s", cfg.ServerURL, cfg.TazaHome)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return nil
	}

	switch args[0] {
	case "auth":
		if len(args) < 2 {
			return fmt.Errorf("usage: tazachat auth <token>")
		}
		return cli.AuthCommand(cfg, args[1])
	case "chats":
		return cli.ChatsCommand(cfg)
	case "users":
		return cli.UsersCommand(cfg)
	case "watch":
		chatID := ""
		if len(args) > 1 {
			chatID = args[1]
		}
		return cli.WatchCommand(cfg, chatID)
	case "version", "--version", "-v":
		fmt.Println("tazachat", version.RichVersion())
		return nil
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage() {
	fmt.Println(`tazachat - terminal client for the Taza chat backend

Usage:
  tazachat auth <token>    Store an access token from the login flow
  tazachat chats           List conversations, newest activity first
  tazachat users           List users available for a new conversation
  tazachat watch [chatId]  Open a conversation and bridge it to the terminal
                           (restores the last-opened one when omitted)
  tazachat version         Show version information
  tazachat help            Show this help message

Environment Variables:
  TAZA_SERVER_URL      REST API base URL (default: https://chat-api.tazafoods.app)
  TAZA_SOCKET_URL      Event channel URL (default: TAZA_SERVER_URL)
  TAZA_HOME            State directory (default: ~/.tazachat)
  TAZA_LOG_LEVEL       trace|debug|info|warn|error (default: info)
  TAZA_PUSHOVER_TOKEN  Pushover app token for background-message notifications
  TAZA_PUSHOVER_USER   Pushover user key
  DEBUG                Enable debug logging (true/1)

Examples:
  # Store a token and list conversations
  tazachat auth eyJhbGciOi...
  tazachat chats

  # Watch a conversation against a local backend
  TAZA_SERVER_URL=http://localhost:8080 tazachat watch 665f1c...`)
}

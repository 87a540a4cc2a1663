// ABOUTME: Entry point for the kartos flashcard backend
// ABOUTME: Subcommands for serving, config init, seeding and health checks

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/kartos-app/kartos/internal/api"
	"github.com/kartos-app/kartos/internal/auth"
	"github.com/kartos-app/kartos/internal/bot"
	"github.com/kartos-app/kartos/internal/config"
	"github.com/kartos-app/kartos/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _               _
| | ____ _ _ __| |_ ___  ___
| |/ / _' | '__| __/ _ \/ __|
|   < (_| | |  | || (_) \__ \
|_|\_\__,_|_|   \__\___/|___/
`

// getConfigPath returns the path to the kartos config file.
// Priority: KARTOS_CONFIG env var > XDG_CONFIG_HOME/kartos/kartos.yaml > ~/.config/kartos/kartos.yaml
func getConfigPath() string {
	if envPath := os.Getenv("KARTOS_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "kartos.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "kartos", "kartos.yaml")
}

// getDataPath returns the path to the kartos data directory.
// Priority: XDG_DATA_HOME/kartos > ~/.local/share/kartos
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "kartos")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: kartos <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve   Start the API server and Telegram bot")
		fmt.Println("  init    Create a config file with a fresh signing secret")
		fmt.Println("  seed    Load the demo flashcard deck into the database")
		fmt.Println("  health  Check server health")
		os.Exit(1)
	}

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "seed":
		err = runSeed(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Auth:     %s mode\n", cfg.Mode())
	fmt.Println()

	logger.Info("starting kartos",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"auth_mode", cfg.Mode(),
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	opts := api.Options{
		Store:       st,
		Login:       auth.NewLoginService(st),
		Visibility:  cfg.Auth.Visibility,
		CORSOrigins: cfg.Server.CORSOrigins,
	}

	if cfg.Telegram.BotToken != "" {
		opts.Telegram = auth.NewTelegramVerifier(
			cfg.Telegram.BotToken,
			cfg.Telegram.InitDataMaxAge,
			cfg.Auth.AllowedAdminIDs,
		)
	} else {
		logger.Warn("telegram bot token not configured, initData logins disabled")
	}

	if cfg.Auth.SSHAuthorizedKey != "" {
		verifier, err := auth.NewSSHKeyVerifier(cfg.Auth.SSHAuthorizedKey)
		if err != nil {
			return fmt.Errorf("parsing authorized ssh key: %w", err)
		}
		opts.SSHKeys = verifier
		opts.SSHAdminID = cfg.Auth.SSHAdminID
	}

	switch cfg.Mode() {
	case "session":
		opts.Sessions = auth.NewSessionAuthenticator(
			auth.NewMemorySessionStore(),
			cfg.Auth.SessionTTL,
			cfg.Server.CookieSecure,
		)
	default:
		opts.Issuer = auth.NewTokenIssuer([]byte(cfg.Auth.SigningSecret), cfg.Auth.TokenTTL)
	}

	server := api.NewServer(opts)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: server.Handler(),
	}

	tgBot, err := bot.New(cfg.Telegram.BotToken, cfg.Telegram.MiniAppURL)
	if err != nil {
		return fmt.Errorf("starting telegram bot: %w", err)
	}
	if tgBot != nil {
		go tgBot.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// runInit writes a starter config file with a freshly generated signing
// secret. An existing config is never overwritten.
func runInit() error {
	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "kartos.db")

	green := color.New(color.FgGreen)

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating signing secret: %w", err)
	}
	signingSecret := base64.StdEncoding.EncodeToString(secretBytes)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	configContent := fmt.Sprintf(`# kartos configuration
# Generated by kartos init

server:
  http_addr: "localhost:4000"
  cookie_secure: false

database:
  path: "%s"

auth:
  mode: "token"
  signing_secret: "%s"
  token_ttl: "12h"
  session_ttl: "24h"
  visibility: "all"

telegram:
  bot_token: "${TELEGRAM_BOT_TOKEN}"
  mini_app_url: "${TELEGRAM_MINIAPP_URL}"
  init_data_max_age: "10m"

logging:
  level: "info"
  format: "text"
`, dbPath, signingSecret)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println()
	fmt.Println("To start the server:")
	fmt.Println("  kartos serve")

	return nil
}

// seedCard is one demo card: an English phrasal verb and its translation.
type seedCard struct {
	term       string
	definition string
}

var seedCards = []seedCard{
	{"Break down", "сломаться (о технике)"},
	{"Carry on", "продолжать делать что-то"},
	{"Come across", "случайно наткнуться"},
	{"Come up with", "придумать идею"},
	{"Cut back on", "сократить потребление"},
	{"Figure out", "разобраться, понять"},
	{"Get along", "ладить, быть в хороших отношениях"},
	{"Give up", "сдаться, бросить"},
	{"Look after", "присматривать за кем-то"},
	{"Look forward to", "ждать с нетерпением"},
	{"Make up", "выдумать, сочинить"},
	{"Pick up", "подобрать, забрать; подучить"},
	{"Point out", "указать, подчеркнуть"},
	{"Put off", "откладывать на потом"},
	{"Run into", "случайно встретить"},
	{"Set up", "организовать, настроить"},
	{"Take off", "взлететь; быстро стать популярным"},
	{"Turn down", "отклонить предложение"},
	{"Work out", "решить проблему; тренироваться"},
	{"Bring up", "поднять тему; воспитывать"},
}

// runSeed loads the demo phrasal-verbs deck into the configured database.
func runSeed(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	description := "Подборка часто используемых английских фразовых глаголов с переводом на русский язык для ежедневной практики."
	group := &store.Group{
		Title:       "English",
		Description: &description,
	}
	if err := st.CreateGroup(ctx, group); err != nil {
		return fmt.Errorf("creating demo group: %w", err)
	}

	cards := make([]*store.Card, 0, len(seedCards))
	for _, c := range seedCards {
		cards = append(cards, &store.Card{Term: c.term, Definition: c.definition})
	}
	if _, err := st.ReplaceGroupCards(ctx, group.ID, cards); err != nil {
		return fmt.Errorf("seeding cards: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Seeded group %q with %d cards\n", group.Title, len(cards))
	return nil
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Make HTTP request to health endpoint with context
	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

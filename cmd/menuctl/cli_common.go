package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/logger"
	"github.com/YspCoder/menuctl/pkg/richmenu"
	"github.com/YspCoder/menuctl/pkg/templates"
)

var errUsage = errors.New("invalid usage")

type usageError struct {
	usage string
}

func (e *usageError) Error() string {
	return "usage: menuctl " + e.usage
}

func (e *usageError) Unwrap() error {
	return errUsage
}

func usage(format string, args ...interface{}) error {
	return &usageError{usage: fmt.Sprintf(format, args...)}
}

// app carries what every command needs. out is swapped in tests.
type app struct {
	cfg    *config.Config
	client *richmenu.Client
	store  *templates.Store
	out    io.Writer
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %w", getConfigPath(), errors.Join(errs...))
	}
	client, err := richmenu.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		client: client,
		store:  templates.NewStore(cfg.TemplatesPath()),
		out:    os.Stdout,
	}, nil
}

// dispatch runs one command line. It is shared by the CLI and the shell.
func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("<command> [args]")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.listCmd(ctx)
	case "get":
		return a.getCmd(ctx, rest)
	case "create":
		return a.createCmd(ctx, rest)
	case "validate":
		return a.validateCmd(ctx, rest)
	case "delete":
		return a.deleteCmd(ctx, rest)
	case "upload":
		return a.uploadCmd(ctx, rest)
	case "download":
		return a.downloadCmd(ctx, rest)
	case "default":
		return a.defaultCmd(ctx, rest)
	case "user":
		return a.userCmd(ctx, rest)
	case "bulk":
		return a.bulkCmd(ctx, rest)
	case "alias":
		return a.aliasCmd(ctx, rest)
	case "templates":
		return a.templatesCmd(ctx, rest)
	case "status":
		return a.statusCmd(ctx)
	case "token":
		return a.tokenCmd(rest)
	case "version":
		fmt.Fprintf(a.out, "menuctl v%s\n", version)
		return nil
	case "help":
		printHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func normalizeCLIArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := []string{args[0]}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--debug" || arg == "-d" {
			continue
		}
		if arg == "--config" {
			if i+1 < len(args) {
				i++
			}
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			continue
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func detectConfigPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" && i+1 < len(args) {
			return strings.TrimSpace(args[i+1])
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimSpace(strings.TrimPrefix(arg, "--config="))
		}
	}
	return ""
}

// takeFlag removes "--name value" or "--name=value" from args.
func takeFlag(args []string, name string) (string, []string, bool) {
	rest := make([]string, 0, len(args))
	value, found := "", false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--"+name && i+1 < len(args):
			value, found = args[i+1], true
			i++
		case strings.HasPrefix(arg, "--"+name+"="):
			value, found = strings.TrimPrefix(arg, "--"+name+"="), true
		default:
			rest = append(rest, arg)
		}
	}
	return value, rest, found
}

func printHelp() {
	fmt.Printf("%s v%s\n\n", titleStyle.Render("menuctl - LINE rich menu manager"), version)
	fmt.Println("Usage: menuctl <command> [options]")
	fmt.Println()
	fmt.Println("Rich menus:")
	fmt.Println("  list                              List rich menus")
	fmt.Println("  get <id>                          Show a rich menu")
	fmt.Println("  create <file.json>                Create a rich menu from a definition file")
	fmt.Println("  create --template <name>          Create a rich menu from a saved template")
	fmt.Println("  validate <file.json>|--template   Validate a definition with LINE")
	fmt.Println("  delete <id>                       Delete a rich menu")
	fmt.Println("  upload <id> <image>               Upload a PNG/JPEG image (max 1 MB)")
	fmt.Println("  download <id> <out>               Download the menu image")
	fmt.Println()
	fmt.Println("Assignment:")
	fmt.Println("  default get|set <id>|clear        Default rich menu for all users")
	fmt.Println("  user get|link|unlink <userId> [id]")
	fmt.Println("  bulk link <id> <userId>...        Link up to 500 users")
	fmt.Println("  bulk unlink <userId>...           Unlink up to 500 users")
	fmt.Println()
	fmt.Println("Aliases and templates:")
	fmt.Println("  alias list|get|create|update|delete")
	fmt.Println("  templates list|show <name>|save <name> <file.json|--from id>|delete <name>")
	fmt.Println()
	fmt.Println("Other:")
	fmt.Println("  serve                             Run the HTTP gateway")
	fmt.Println("  shell                             Interactive mode")
	fmt.Println("  status                            Show configuration and credential status")
	fmt.Println("  token <value>                     Replace the access token for this session")
	fmt.Println("  config get|set|check              Inspect or change the config file")
	fmt.Println("  version                           Show version information")
	fmt.Println()
	fmt.Println("Global options:")
	fmt.Println("  --config <path>         Use custom config file")
	fmt.Println("  --debug, -d             Enable debug logging")
}

func getConfigPath() string {
	if strings.TrimSpace(globalConfigPathOverride) != "" {
		return globalConfigPathOverride
	}
	if fromEnv := strings.TrimSpace(os.Getenv("MENUCTL_CONFIG")); fromEnv != "" {
		return fromEnv
	}
	return filepath.Join(config.GetConfigDir(), "config.json")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, err
	}
	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	if !config.IsDebugMode() && cfg.Logging.Level != "" {
		if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
	}
	if !cfg.Logging.Enabled {
		logger.DisableFileLogging()
		return
	}

	logFile := cfg.LogFilePath()
	if err := logger.EnableFileLoggingWithRotation(logFile, cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays); err != nil {
		fmt.Printf("Warning: failed to enable file logging: %v\n", err)
	}
}

func (a *app) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

func readMenuFile(path string) (*richmenu.RichMenu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu definition: %w", err)
	}
	var menu richmenu.RichMenu
	if err := json.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("parse menu definition %s: %w", path, err)
	}
	return &menu, nil
}

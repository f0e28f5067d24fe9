package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/configops"
)

func configCmd(args []string) error {
	if len(args) == 0 {
		configHelp()
		return nil
	}

	switch args[0] {
	case "set":
		return configSetCmd(args[1:])
	case "get":
		return configGetCmd(args[1:])
	case "check":
		return configCheckCmd()
	case "reload":
		if _, err := configops.TriggerReload(getConfigPath()); err != nil {
			return fmt.Errorf("reload not applied: %w", err)
		}
		fmt.Println(okStyle.Render("✓ Reload signal sent to menuctl serve"))
		return nil
	default:
		configHelp()
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

func configHelp() {
	fmt.Println("\nConfig commands:")
	fmt.Println("  set <path> <value>     Set a config value and reload a running gateway")
	fmt.Println("  get <path>             Print a config value")
	fmt.Println("  check                  Validate the current config")
	fmt.Println("  reload                 Ask a running gateway to reload its config")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  menuctl config set token <channel access token>")
	fmt.Println("  menuctl config set retry.max_retries 5")
	fmt.Println("  menuctl config set richmenu.allowed_sizes 2500x1686,2500x843")
	fmt.Println("  menuctl config get gateway.port")
}

func configSetCmd(args []string) error {
	if len(args) < 2 {
		return usage("config set <path> <value>")
	}

	configPath := getConfigPath()
	cfgMap, err := configops.LoadConfigAsMap(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := configops.NormalizeConfigPath(args[0])
	value := configops.ParseConfigValue(strings.Join(args[1:], " "))
	if err := configops.SetMapValueByPath(cfgMap, path, value); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfgMap, "", "  ")
	if err != nil {
		return err
	}
	if err := configops.CheckConfigData(data); err != nil {
		return fmt.Errorf("refusing to write invalid config: %w", err)
	}
	backupPath, err := configops.WriteConfigAtomicWithBackup(configPath, data)
	if err != nil {
		return err
	}

	shown := value
	if path == "line.channel_access_token" {
		shown = "********"
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("✓ Updated %s = %v", path, shown)))

	running, err := configops.TriggerReload(configPath)
	switch {
	case err == nil:
		fmt.Println(okStyle.Render("✓ Gateway reload signal sent"))
	case running:
		if rbErr := configops.RollbackConfigFromBackup(configPath, backupPath); rbErr != nil {
			return fmt.Errorf("reload failed (%v) and rollback failed: %w", err, rbErr)
		}
		return fmt.Errorf("reload failed, config rolled back: %w", err)
	case errors.Is(err, configops.ErrServeNotRunning):
		fmt.Println(dimStyle.Render("gateway not running; change applies on next start"))
	}
	return nil
}

func configGetCmd(args []string) error {
	if len(args) != 1 {
		return usage("config get <path>")
	}

	cfgMap, err := configops.LoadConfigAsMap(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := configops.NormalizeConfigPath(args[0])
	value, ok := configops.GetMapValueByPath(cfgMap, path)
	if !ok {
		return fmt.Errorf("path not found: %s", path)
	}
	if path == "line.channel_access_token" {
		cfg := config.DefaultConfig()
		if s, ok := value.(string); ok {
			cfg.SetAccessToken(s)
		}
		value = cfg.MaskedToken()
	}

	data, err := json.Marshal(value)
	if err != nil {
		fmt.Printf("%v\n", value)
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func configCheckCmd() error {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	validationErrors := config.Validate(cfg)
	if len(validationErrors) == 0 {
		fmt.Println(okStyle.Render("✓ Config validation passed"))
		return nil
	}

	fmt.Println(errStyle.Render("✗ Config validation failed:"))
	for _, ve := range validationErrors {
		fmt.Printf("  - %v\n", ve)
	}
	return errors.New("config is invalid")
}

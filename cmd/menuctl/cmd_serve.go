package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/configops"
	"github.com/YspCoder/menuctl/pkg/logger"
	"github.com/YspCoder/menuctl/pkg/server"
)

func serveCmd(a *app) error {
	cfg := a.cfg
	configPath := getConfigPath()

	srv := server.NewServer(cfg, a.client, a.store)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}
	if err := configops.WritePIDFile(configPath); err != nil {
		fmt.Printf("Warning: failed to write pid file: %v\n", err)
	} else {
		defer configops.RemovePIDFile(configPath)
	}

	fmt.Printf("✓ Gateway started on %s\n", srv.Addr())
	if !a.client.HasAccessToken() {
		fmt.Println(warnStyle.Render("⚠ No channel access token configured; LINE calls will be refused"))
	}
	fmt.Println("Press Ctrl+C to stop. Send SIGHUP to hot-reload config.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)
	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			fmt.Println("\n↻ Reloading config...")
			newCfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Printf("✗ Reload failed (load config): %v\n", err)
				continue
			}
			if errs := config.Validate(newCfg); len(errs) > 0 {
				fmt.Printf("✗ Reload failed (validate): %v\n", errs[0])
				continue
			}

			configureLogging(newCfg)
			a.client.SetAccessToken(newCfg.GetAccessToken())
			cfg.SetAccessToken(newCfg.GetAccessToken())
			logger.InfoCF("serve", "Config reloaded", map[string]interface{}{
				"token_configured": a.client.HasAccessToken(),
			})

			restartNeeded := !reflect.DeepEqual(cfg.Retry, newCfg.Retry) ||
				!reflect.DeepEqual(cfg.RichMenu, newCfg.RichMenu) ||
				!reflect.DeepEqual(cfg.Gateway, newCfg.Gateway) ||
				cfg.LINE.APIBase != newCfg.LINE.APIBase ||
				cfg.LINE.DataAPIBase != newCfg.LINE.DataAPIBase
			if restartNeeded {
				fmt.Println("✓ Token and logging reloaded; restart to apply retry, size or gateway changes")
				continue
			}
			fmt.Println("✓ Config hot-reload applied")
		default:
			fmt.Println("\nShutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := srv.Stop(ctx)
			cancel()
			if err != nil {
				return fmt.Errorf("stop gateway: %w", err)
			}
			fmt.Println("✓ Gateway stopped")
			return nil
		}
	}
}

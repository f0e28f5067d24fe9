package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/YspCoder/menuctl/pkg/configops"
)

func (a *app) statusCmd(ctx context.Context) error {
	configPath := getConfigPath()
	cfg := a.cfg

	fmt.Fprintln(a.out, titleStyle.Render("menuctl status"))
	fmt.Fprintln(a.out)

	_, statErr := os.Stat(configPath)
	a.field("Config:", configPath+" "+check(statErr == nil))
	_, statErr = os.Stat(a.store.Dir())
	a.field("Templates:", a.store.Dir()+" "+check(statErr == nil))

	a.field("API base:", cfg.LINE.APIBase)
	a.field("Data API base:", cfg.LINE.DataAPIBase)
	a.field("Retries:", fmt.Sprintf("%d (base delay %dms)", cfg.Retry.MaxRetries, cfg.Retry.BaseDelayMS))

	sizes := make([]string, 0, len(a.client.AllowedSizes()))
	for _, s := range a.client.AllowedSizes() {
		sizes = append(sizes, s.String())
	}
	a.field("Menu sizes:", strings.Join(sizes, ", "))
	a.field("Gateway:", fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port))
	_, statErr = os.Stat(configops.PIDFilePath(configPath))
	a.field("Gateway running:", check(statErr == nil))

	a.field("Logging:", cfg.Logging.Enabled)
	if cfg.Logging.Enabled {
		a.field("Log file:", cfg.LogFilePath())
	}

	if !a.client.HasAccessToken() {
		a.field("Access token:", "not set "+check(false))
		return nil
	}
	a.field("Access token:", cfg.MaskedToken())

	// One cheap authenticated call tells whether the token is accepted.
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := a.client.ListAliases(checkCtx); err != nil {
		a.field("LINE API:", err.Error()+" "+check(false))
		return nil
	}
	a.field("LINE API:", "reachable "+check(true))
	return nil
}

// tokenCmd swaps the in-memory credential; it is most useful in the shell.
func (a *app) tokenCmd(args []string) error {
	if len(args) != 1 {
		return usage("token <channelAccessToken>")
	}
	a.client.SetAccessToken(args[0])
	a.cfg.SetAccessToken(args[0])
	if !a.client.HasAccessToken() {
		fmt.Fprintln(a.out, warnStyle.Render("token looks like a placeholder; requests will be refused"))
		return nil
	}
	a.ok("Access token updated for this session (%s)", a.cfg.MaskedToken())
	return nil
}

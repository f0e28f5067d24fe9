// menuctl - manage LINE rich menus from the command line or a local gateway.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/logger"
)

const version = "0.1.0"

var globalConfigPathOverride string

func main() {
	globalConfigPathOverride = detectConfigPathFromArgs(os.Args)

	for _, arg := range os.Args {
		if arg == "--debug" || arg == "-d" {
			config.SetDebugMode(true)
			logger.SetLevel(logger.DEBUG)
			break
		}
	}

	os.Args = normalizeCLIArgs(os.Args)

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "help", "--help", "-h":
		printHelp()
		return
	case "version", "--version", "-v":
		fmt.Printf("menuctl v%s\n", version)
		return
	case "config":
		if err := configCmd(os.Args[2:]); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	a, err := newApp()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	switch command {
	case "serve":
		err = serveCmd(a)
	case "shell":
		err = shellCmd(a)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err = a.dispatch(ctx, os.Args[1:])
		stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/YspCoder/menuctl/pkg/config"
)

const shellPrompt = "menuctl> "

func shellCmd(a *app) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     filepath.Join(config.GetConfigDir(), "shell_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		return a.simpleShell(os.Stdin)
	}
	defer rl.Close()

	fmt.Println(titleStyle.Render("menuctl shell") + dimStyle.Render("  (help for commands, exit to quit)"))
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !a.shellLine(line) {
			return nil
		}
	}
}

func (a *app) simpleShell(in io.Reader) error {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(a.out, shellPrompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(a.out, "\nGoodbye!")
				return nil
			}
			return err
		}
		if !a.shellLine(line) {
			return nil
		}
	}
}

// shellLine runs one shell input and reports whether the shell should go on.
// Ctrl+C during a command cancels that command only.
func (a *app) shellLine(line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "exit", "quit":
		fmt.Fprintln(a.out, "Goodbye!")
		return false
	case "serve", "shell", "config":
		fmt.Fprintf(a.out, "%s is not available inside the shell\n", args[0])
		return true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := a.dispatch(ctx, args); err != nil {
		printError(err)
	}
	return true
}

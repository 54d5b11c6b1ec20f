package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/moherun/internal/browser"
	"github.com/abrezinsky/moherun/internal/logger"
)

// keyboardActions are what the single-key shortcuts act on
type keyboardActions struct {
	dashboardURL string
	log          logger.Logger
	refresh      func()
	quit         func()
	open         func(url string) error
	out          io.Writer
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %so%s      - Open the dashboard in a browser\n", cyan, reset)
	fmt.Printf("    %sr%s      - Refresh from the spreadsheet now\n", cyan, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// listenForKeyboard reads single keys from the terminal until ctx is done or q is
// pressed. It does nothing when stdin is not a terminal.
func listenForKeyboard(ctx context.Context, actions keyboardActions) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	oldState, err := term.GetState(fd)
	if err != nil {
		return
	}
	if err := enableCBreak(fd); err != nil {
		return
	}
	defer term.Restore(fd, oldState)

	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok || !actions.handle(key) {
				return
			}
		}
	}
}

func readKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return
		}
		if n == 1 {
			keys <- buf[0]
		}
	}
}

// handle runs the action bound to key and reports whether to keep listening
func (a keyboardActions) handle(key byte) bool {
	out := a.out
	if out == nil {
		out = os.Stdout
	}
	open := a.open
	if open == nil {
		open = browser.Open
	}

	switch strings.ToLower(string(key)) {
	case "o":
		fmt.Fprintf(out, "%sOpening the dashboard in a browser...%s\n", cyan, reset)
		if err := open(a.dashboardURL); err != nil {
			fmt.Fprintf(out, "%sError opening browser: %v%s\n", red, err, reset)
		}
	case "r":
		fmt.Fprintf(out, "%sRefreshing from the spreadsheet...%s\n", cyan, reset)
		go a.refresh()
	case "h":
		if a.log.IsHTTPLoggingEnabled() {
			a.log.DisableHTTPLogging()
			fmt.Fprintf(out, "%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			a.log.EnableHTTPLogging()
			fmt.Fprintf(out, "%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := logger.NextLevel(a.log.GetLevel())
		a.log.SetLevel(next)
		fmt.Fprintf(out, "%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case "q", "\x03":
		fmt.Fprintf(out, "%sShutting down server...%s\n", yellow, reset)
		a.quit()
		return false
	case "?":
		printKeyboardHelp()
	}
	return true
}

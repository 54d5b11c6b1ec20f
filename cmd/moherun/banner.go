package main

import (
	"fmt"
	"strings"
	"time"
)

// ANSI escape codes
const (
	clearLine = "\033[2K"
	moveUp    = "\033[%dA"
	reset     = "\033[0m"
	yellow    = "\033[33m"
	red       = "\033[31m"
	green     = "\033[32m"
	cyan      = "\033[36m"
	bold      = "\033[1m"
)

const bannerWidth = 62

var logo = []string{
	"   __  __  ___  _   _ _____   ____  _   _ _   _             ",
	"  |  \\/  |/ _ \\| | | | ____| |  _ \\| | | | \\ | |            ",
	"  | |\\/| | | | | |_| |  _|   | |_) | | | |  \\| |            ",
	"  | |  | | |_| |  _  | |___  |  _ <| |_| | |\\  |            ",
	"  |_|  |_|\\___/|_| |_|_____| |_| \\_\\\\___/|_| \\_|            ",
}

// showStartupAnimation draws the logo, then a runner crossing the map from the start
// line to Mohe unless skipRun is set.
func showStartupAnimation(skipRun bool) {
	border := strings.Repeat("═", bannerWidth)

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		fmt.Printf("  %s║%s%-*s%s║%s\n", cyan, yellow, bannerWidth, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n", cyan, border, reset)

	if skipRun {
		fmt.Print("\n")
		return
	}

	fmt.Printf(moveUp, 1)
	fmt.Printf("%s  %s╠%s╣%s\n", clearLine, cyan, border, reset)

	const runner = "o/"
	track := bannerWidth - len(" START") - len("MOHE ")
	frames := 16
	for frame := 0; frame <= frames; frame++ {
		pos := frame * (track - len(runner)) / frames
		line := strings.Repeat("·", pos) + green + runner + reset + strings.Repeat(" ", track-pos-len(runner))
		fmt.Printf("%s  %s║%s START%s%sMOHE %s║%s\n", clearLine, cyan, reset, line, red, cyan, reset)
		fmt.Printf("%s  %s╚%s╝%s\n", clearLine, cyan, border, reset)
		if frame < frames {
			fmt.Printf(moveUp, 2)
			time.Sleep(60 * time.Millisecond)
		}
	}
	fmt.Print("\n")
}

//go:build !linux && !darwin

package main

// enableCBreak is a no-op where the console is line buffered; keys apply after Enter.
func enableCBreak(int) error {
	return nil
}

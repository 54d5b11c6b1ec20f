//go:build linux || darwin

package main

import "golang.org/x/sys/unix"

// enableCBreak turns off line buffering and echo but keeps output processing, so log
// lines still end with a carriage return.
func enableCBreak(fd int) error {
	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return err
	}
	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, ioctlSetTermios, t)
}

//go:build linux

package interaction

import (
	"golang.org/x/sys/unix"
)

// enableRawMode sets the terminal to raw mode on Linux
func (kr *KeyboardReader) enableRawMode() error {
	return kr.setRaw(unix.TCGETS, unix.TCSETS)
}

// disableRawMode restores the terminal to normal mode on Linux
func (kr *KeyboardReader) disableRawMode() error {
	if kr.oldState == nil {
		return nil
	}
	return unix.IoctlSetTermios(int(kr.in.Fd()), unix.TCSETS, kr.oldState)
}

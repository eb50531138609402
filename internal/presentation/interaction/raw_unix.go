//go:build linux || darwin

package interaction

import (
	"golang.org/x/sys/unix"
)

// setRaw switches the input terminal to raw mode using the platform ioctl requests
func (kr *KeyboardReader) setRaw(get, set uint) error {
	fd := int(kr.in.Fd())

	oldState, err := unix.IoctlGetTermios(fd, get)
	if err != nil {
		return err
	}
	kr.oldState = oldState

	newState := *oldState
	newState.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN
	// Keep ISIG enabled to allow Ctrl+C handling
	newState.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	newState.Cflag |= unix.CS8
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, set, &newState)
}

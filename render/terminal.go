package render

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// TerminalSize returns the terminal dimensions in character cells.
func TerminalSize() (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// enterRawMode switches stdin into raw mode and returns a function restoring
// the previous settings. VMIN=0/VTIME=1 makes reads time out after 100ms so
// the keyboard poller can observe cancellation between keystrokes.
func enterRawMode() (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("failed to query termios: %w", err)
	}

	raw := *old
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.ICRNL
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 1
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	return func() {
		unix.IoctlSetTermios(fd, unix.TCSETS, old)
	}, nil
}

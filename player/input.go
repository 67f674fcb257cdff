package player

import "os"

// pollKeyboard reads stdin until the cancellation flag latches, latching it
// itself when a quit key arrives. The display manager's raw mode configures
// reads to time out (VMIN=0, VTIME), so the loop observes cancellation at
// least once per timeout even with no keystrokes.
func pollKeyboard(cancel *CancelFlag) {
	buf := make([]byte, 8)
	for !cancel.Cancelled() {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			switch b {
			case 'q', 'Q', 0x1b, 0x03: // q, Esc, Ctrl-C
				cancel.Cancel()
				return
			}
		}
	}
}

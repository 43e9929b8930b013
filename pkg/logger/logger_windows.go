//go:build windows

package logger

import (
	"os"

	"golang.org/x/sys/windows"
)

const SupportsColorEscapes = true

func GetTerminalInfo(file *os.File) TerminalInfo {
	fd := windows.Handle(file.Fd())

	// Is this file descriptor a terminal?
	var mode uint32
	isTTY := windows.GetConsoleMode(fd, &mode) == nil

	// Enable virtual terminal processing so ANSI escapes work. Failure means
	// we're on an old console that can't render colors.
	useColorEscapes := false
	if isTTY && !hasNoColorEnvironmentVariable() {
		useColorEscapes = windows.SetConsoleMode(fd,
			mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
	}

	// Get the width of the window
	var info windows.ConsoleScreenBufferInfo
	width, height := 0, 0
	if windows.GetConsoleScreenBufferInfo(fd, &info) == nil {
		width = int(info.Size.X) - 1
		height = int(info.Size.Y) - 1
	}

	return TerminalInfo{
		IsTTY:           isTTY,
		UseColorEscapes: useColorEscapes,
		Width:           width,
		Height:          height,
	}
}

func writeStringWithColor(file *os.File, text string) {
	file.WriteString(text)
}

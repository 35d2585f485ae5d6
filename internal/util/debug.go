package util

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// File-backed debug logger for the TUI, where stderr is not visible.

var (
	debugMu     sync.Mutex
	debugLogger *log.Logger
	debugFile   *os.File
)

// InitDebugLogger opens filename for appending and enables Debug output.
func InitDebugLogger(filename string) error {
	debugMu.Lock()
	defer debugMu.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	debugFile = f
	debugLogger = log.New(f, "[DEBUG] ", log.LstdFlags|log.Lmicroseconds)
	return nil
}

// CloseDebugLogger closes the log file. Debug becomes a no-op again.
func CloseDebugLogger() {
	debugMu.Lock()
	defer debugMu.Unlock()
	if debugFile != nil {
		debugFile.Close()
		debugFile = nil
		debugLogger = nil
	}
}

// Debug logs a message when the logger is initialized.
func Debug(format string, args ...interface{}) {
	debugMu.Lock()
	defer debugMu.Unlock()
	if debugLogger != nil {
		debugLogger.Output(2, fmt.Sprintf(format, args...))
	}
}

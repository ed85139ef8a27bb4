package logger

import (
	"fmt"
	"io"
)

// Must panics if logger creation fails
// Useful for package-level initialization where errors are unrecoverable
func Must(logger *Logger, err error) *Logger {
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return logger
}

// Discard returns a logger that drops everything. Handy in tests that
// don't assert on log output.
func Discard() *Logger {
	return Must(New(Config{Env: "test", Output: io.Discard}))
}

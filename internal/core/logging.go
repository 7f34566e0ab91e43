// ABOUTME: Logger helpers for core components
// ABOUTME: A nil logger is replaced by one that discards everything
package core

import (
	"io"

	"github.com/charmbracelet/log"
)

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}

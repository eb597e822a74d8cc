package app

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a JSON production logger writing to stdout at level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	config.Level = lvl
	config.OutputPaths = []string{"stdout"}
	return config.Build()
}

// Package main — Logger kurulumu.
package main

import (
	"fmt"

	"go.uber.org/zap"
)

// newLogger, LOG_LEVEL seviyesinde JSON çıktılı production logger'ı oluşturur.
// Bileşenler buradan .Named("ws") gibi alt logger'lar alır.
func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Helper is a small leveled-logging facade over zerolog: call sites use
// Debugf/Warnf/Errorf regardless of which sink is behind them.
type Helper struct {
	log zerolog.Logger
}

// NewHelper wraps a zerolog.Logger. Passing nil yields a helper that logs
// to stderr at warn level.
func NewHelper(l *zerolog.Logger) *Helper {
	if l == nil {
		std := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
		return &Helper{log: std}
	}
	return &Helper{log: *l}
}

// NewStdLogger builds a zerolog.Logger writing to w.
func NewStdLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func (h *Helper) Debugf(format string, args ...any) {
	if h == nil {
		return
	}
	h.log.Debug().Msgf(format, args...)
}

func (h *Helper) Warnf(format string, args ...any) {
	if h == nil {
		return
	}
	h.log.Warn().Msgf(format, args...)
}

func (h *Helper) Errorf(format string, args ...any) {
	if h == nil {
		return
	}
	h.log.Error().Msgf(format, args...)
}

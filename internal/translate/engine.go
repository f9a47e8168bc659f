// Package translate renders feed text into the target language through an
// ordered chain of backends. External engines may fail transiently; the
// builtin glossary backend cannot, so translation as a whole is total and
// never returns an error to the pipeline.
package translate

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Backend is one translation engine in the fallback chain.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text string) (string, error)
}

const (
	// EngineNone marks text that needed no translation.
	EngineNone = "none"

	maxInputRunes = 500
)

// Engine tries each backend in order and falls back to the glossary when
// all external engines fail. External calls pass through one shared rate
// gate enforcing the configured inter-call delay; glossary lookups do not.
type Engine struct {
	backends []Backend
	fallback *Glossary
	gate     *rate.Limiter
	logger   *slog.Logger
}

func NewEngine(backends []Backend, interCallDelay time.Duration, logger *slog.Logger) *Engine {
	if interCallDelay <= 0 {
		interCallDelay = time.Second
	}
	return &Engine{
		backends: backends,
		fallback: NewGlossary(),
		gate:     rate.NewLimiter(rate.Every(interCallDelay), 1),
		logger:   logger.With("component", "translate"),
	}
}

// Translate returns the localized text and the name of the engine that
// produced it. It never fails: text that is already mostly Chinese is
// returned as-is, and the glossary is the terminal fallback.
func (e *Engine) Translate(ctx context.Context, text string) (string, string) {
	if text == "" {
		return "", EngineNone
	}
	if mostlyChinese(text) {
		return text, EngineNone
	}

	text = truncateRunes(text, maxInputRunes)

	for _, b := range e.backends {
		if err := e.gate.Wait(ctx); err != nil {
			break
		}
		translated, err := b.Translate(ctx, text)
		if err != nil {
			e.logger.Debug("engine failed, trying next", "engine", b.Name(), "error", err)
			continue
		}
		if translated != "" && translated != text {
			return translated, b.Name()
		}
	}

	if len(e.backends) > 0 {
		e.logger.Warn("all translation engines failed, using glossary")
	}
	return e.fallback.Annotate(text), e.fallback.Name()
}

// mostlyChinese reports whether at least 30% of the runes are CJK, in which
// case the text is left untranslated.
func mostlyChinese(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	cjk := 0
	for _, r := range runes {
		if r >= 0x4e00 && r <= 0x9fff {
			cjk++
		}
	}
	return cjk*10 >= len(runes)*3
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

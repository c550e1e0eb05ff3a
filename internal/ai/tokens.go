// Package ai estimates the token cost of AI requests before they are
// admitted against a company's daily token quota.
package ai

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when the configured model has no known encoding.
const DefaultEncoding = "cl100k_base"

// Estimator estimates how many tokens a prompt will consume.
type Estimator interface {
	Estimate(text string) int64
}

// TiktokenEstimator counts tokens with a BPE encoding.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.Mutex
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.Mutex

	// Replaced in tests to simulate an unreachable BPE source.
	encodingForModel = tiktoken.EncodingForModel
	getEncoding      = tiktoken.GetEncoding
)

// NewTiktokenEstimator loads the encoding for model, falling back to
// DefaultEncoding for models tiktoken does not know. Encodings are cached
// per model for the life of the process.
func NewTiktokenEstimator(model string) (*TiktokenEstimator, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return &TiktokenEstimator{encoding: enc}, nil
	}

	enc, err := encodingForModel(model)
	if err != nil {
		enc, err = getEncoding(DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding: %w", err)
		}
	}
	encodingCache[model] = enc

	return &TiktokenEstimator{encoding: enc}, nil
}

// Estimate returns the exact token count of text under the encoding.
func (e *TiktokenEstimator) Estimate(text string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.encoding.Encode(text, nil, nil)))
}

// CharEstimator approximates one token per four characters, rounded up.
type CharEstimator struct{}

// Estimate returns ceil(runes/4).
func (CharEstimator) Estimate(text string) int64 {
	n := int64(utf8.RuneCountInString(text))
	return (n + 3) / 4
}

// NewEstimator returns a tiktoken estimator for model, or a CharEstimator if
// the encoding cannot be loaded (tiktoken fetches BPE files on first use).
func NewEstimator(model string, logger *slog.Logger) Estimator {
	est, err := NewTiktokenEstimator(model)
	if err != nil {
		logger.Warn("token encoding unavailable, using character estimate",
			"model", model,
			"error", err,
		)
		return CharEstimator{}
	}
	return est
}

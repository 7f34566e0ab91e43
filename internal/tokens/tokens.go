// ABOUTME: Token counting used to bound chunk sizes
// ABOUTME: Byte-ratio estimate by default, HuggingFace tokenizer.json when configured
package tokens

import (
	"fmt"
	"os"
	"sync"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// BytesPerToken is the rough ratio between UTF-8 bytes and model tokens
const BytesPerToken = 4

// Counter reports how many tokens a piece of text costs
type Counter interface {
	Count(text string) int
}

// Estimate returns ceil(len(text)/BytesPerToken), never less than 1
func Estimate(text string) int {
	n := (len(text) + BytesPerToken - 1) / BytesPerToken
	if n < 1 {
		return 1
	}
	return n
}

// Estimator is the default Counter backed by Estimate
type Estimator struct{}

// Count implements Counter
func (Estimator) Count(text string) int {
	return Estimate(text)
}

// Pretrained counts tokens with a HuggingFace tokenizer
type Pretrained struct {
	mu  sync.Mutex
	tok *tokenizer.Tokenizer
}

// NewPretrained loads a tokenizer.json file
func NewPretrained(path string) (*Pretrained, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	tok, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &Pretrained{tok: tok}, nil
}

// Count implements Counter. Encoding failures fall back to the estimate.
func (p *Pretrained) Count(text string) int {
	p.mu.Lock()
	enc, err := p.tok.EncodeSingle(text)
	p.mu.Unlock()
	if err != nil || enc == nil {
		return Estimate(text)
	}
	if n := len(enc.GetIds()); n > 0 {
		return n
	}
	return 1
}

// Load returns a Pretrained counter when path is set, otherwise the estimator
func Load(path string) (Counter, error) {
	if path == "" {
		return Estimator{}, nil
	}
	return NewPretrained(path)
}

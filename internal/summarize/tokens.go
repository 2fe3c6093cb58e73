package summarize

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/docmill-ai/docmill/internal/domain"
)

// TokenCounter measures and bounds prompt size in model tokens.
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, budget int) string
}

// tiktokenCounter counts with the cl100k_base encoding, which the chat
// models used here share.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

var _ TokenCounter = (*tiktokenCounter)(nil)

// NewTokenCounter loads the tokenizer.
func NewTokenCounter() (TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return nil, domain.ConfigError("failed to load tokenizer", err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (t *tiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t *tiktokenCounter) Truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return t.enc.Decode(tokens[:budget])
}

package planner

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// CountTokens counts prompt tokens with the model's encoding, falling back
// to cl100k_base for models the tokenizer does not know.
func CountTokens(model, s string) (int, error) {
	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return 0, errors.Wrap(err, "could not load tokenizer")
		}
	}
	ids, _, err := codec.Encode(s)
	if err != nil {
		return 0, errors.Wrap(err, "could not encode prompt")
	}
	return len(ids), nil
}

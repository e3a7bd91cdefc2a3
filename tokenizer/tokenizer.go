// Package tokenizer - Vokabulargroesse aus tokenizer.json
//
// Vom Tokenizer wird hier nur die Groesse des Vokabulars benoetigt: die
// hoechste vergebene Token-ID aus model.vocab und added_tokens plus eins.
package tokenizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/EchoCog/aphroditecho/huggingface"
)

const File = "tokenizer.json"

var ErrEmptyVocabulary = errors.New("tokenizer has an empty vocabulary")

// tokenizer repraesentiert die benoetigten Teile von tokenizer.json
type tokenizer struct {
	AddedTokens []token `json:"added_tokens"`
	Model       struct {
		Type  string          `json:"type"`
		Vocab json.RawMessage `json:"vocab"`
	} `json:"model"`
}

// token repraesentiert ein einzelnes Token
type token struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

// VocabSize returns the vocabulary size, including added tokens, of the
// tokenizer.json document read from r.
func VocabSize(r io.Reader) (int, error) {
	var t tokenizer
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", File, err)
	}

	size := 0
	if len(t.Model.Vocab) > 0 {
		ids, err := vocabIDs(t.Model.Vocab)
		if err != nil {
			return 0, fmt.Errorf("parsing %s: %w", File, err)
		}
		for _, id := range ids {
			size = max(size, id+1)
		}
	}

	for _, tok := range t.AddedTokens {
		size = max(size, tok.ID+1)
	}

	if size == 0 {
		return 0, ErrEmptyVocabulary
	}
	return size, nil
}

// vocabIDs accepts both BPE/WordPiece vocabularies (token -> id) and
// Unigram vocabularies ([token, score] pairs, id is the position).
func vocabIDs(raw json.RawMessage) ([]int, error) {
	var byToken map[string]int
	if err := json.Unmarshal(raw, &byToken); err == nil {
		ids := make([]int, 0, len(byToken))
		for _, id := range byToken {
			ids = append(ids, id)
		}
		return ids, nil
	}

	var pairs []json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("unsupported vocab: %w", err)
	}
	ids := make([]int, len(pairs))
	for i := range pairs {
		ids[i] = i
	}
	return ids, nil
}

// Repo reads the tokenizer of a model repository.
type Repo struct {
	huggingface.Repo
}

// VocabSize returns the vocabulary size of the repo's tokenizer.json.
func (r Repo) VocabSize() (int, error) {
	bts, err := r.Read(File)
	if err != nil {
		return 0, err
	}
	return VocabSize(bytes.NewReader(bts))
}

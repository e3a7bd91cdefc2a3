// Package input - Beschreibung eines Batches fuer den Vorwaertsdurchlauf
package input

// Batch is a flattened set of tokens from one or more sequences.
type Batch struct {
	// Inputs are the token ids.
	Inputs []int32

	// Positions are the positions of Inputs within their sequence.
	Positions []int32

	// Sequences are the sequence ids of Inputs.
	Sequences []int

	// Outputs are indices into Inputs for which logits are computed.
	Outputs []int32
}

// Len returns the number of tokens in the batch.
func (b Batch) Len() int {
	return len(b.Inputs)
}

// ProfileBatch builds the largest batch the engine is configured to serve:
// maxTokens tokens spread as evenly as possible over min(maxSequences,
// maxTokens) sequences, each starting at position 0. Every sequence
// requests the logits of its last token. Token ids are 0.
func ProfileBatch(maxTokens, maxSequences int) Batch {
	seqs := min(maxSequences, maxTokens)
	if seqs <= 0 {
		return Batch{}
	}

	b := Batch{
		Inputs:    make([]int32, maxTokens),
		Positions: make([]int32, 0, maxTokens),
		Sequences: make([]int, 0, maxTokens),
		Outputs:   make([]int32, 0, seqs),
	}

	for s := range seqs {
		n := maxTokens / seqs
		if s < maxTokens%seqs {
			n++
		}
		for p := range n {
			b.Positions = append(b.Positions, int32(p))
			b.Sequences = append(b.Sequences, s)
		}
		b.Outputs = append(b.Outputs, int32(len(b.Positions)-1))
	}
	return b
}

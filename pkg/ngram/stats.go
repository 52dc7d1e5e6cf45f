package ngram

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Order          int `json:"order"`           // The context order n
	VocabSize      int `json:"vocab_size"`      // Number of distinct tokens
	TotalTokens    int `json:"total_tokens"`    // Sum of all vocab counts
	Contexts       int `json:"contexts"`        // Number of distinct context keys
	Transitions    int `json:"transitions"`     // Number of distinct context -> next token pairs
	TotalFrequency int `json:"total_frequency"` // Sum of all transition counts; the number of trained windows
}

// Stats returns a snapshot of statistics for m.
func (m *Model) Stats() ModelStats {
	s := ModelStats{
		Order:     m.N,
		VocabSize: len(m.Vocab),
		Contexts:  len(m.Table),
	}
	for _, count := range m.Vocab {
		s.TotalTokens += count
	}
	for _, nexts := range m.Table {
		s.Transitions += len(nexts)
		for _, count := range nexts {
			s.TotalFrequency += count
		}
	}
	return s
}

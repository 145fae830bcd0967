package converter

import "slices"

// Coalesce merges consecutive grid steps whose frequency vectors are
// identical into spans
func Coalesce(steps []GridStep) []Span {
	spans := make([]Span, 0, len(steps))
	for _, st := range steps {
		spans = appendSpan(spans, Span{Frequencies: st.Frequencies, Duration: st.Duration})
	}
	return spans
}

// Merge coalesces a span sequence. Merging an already merged sequence
// returns an equal sequence.
func Merge(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, sp := range spans {
		out = appendSpan(out, sp)
	}
	return out
}

func appendSpan(spans []Span, sp Span) []Span {
	if n := len(spans); n > 0 && slices.Equal(spans[n-1].Frequencies, sp.Frequencies) {
		spans[n-1].Duration += sp.Duration
		return spans
	}
	return append(spans, Span{
		Frequencies: slices.Clone(sp.Frequencies),
		Duration:    sp.Duration,
	})
}

package model

// Analysis is the combined result of the four text models for one input.
// Sentiment is preformatted as "<label> (<score>)".
type Analysis struct {
	Summary   string   `json:"summary"`
	Keywords  []string `json:"keywords"`
	Topics    []string `json:"topics"`
	Sentiment string   `json:"sentiment"`
}

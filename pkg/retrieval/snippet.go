package retrieval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Snippet is one retrieved knowledge excerpt. Every field is optional;
// nil means the backend did not supply it. Defaults are filled in by the
// evidence assembler, not here.
type Snippet struct {
	Source  *string `json:"source,omitempty"`
	ChunkID *string `json:"chunk_id,omitempty"`
	Text    *string `json:"text,omitempty"`

	// Score is informational and never rendered.
	Score float64 `json:"score,omitempty"`
}

// Opt returns a pointer to s for populating optional Snippet fields.
func Opt(s string) *string {
	return &s
}

// NewSnippet builds a Snippet with every field present.
func NewSnippet(source, chunkID, text string) Snippet {
	return Snippet{Source: Opt(source), ChunkID: Opt(chunkID), Text: Opt(text)}
}

type rawSnippet struct {
	Source  json.RawMessage `json:"source"`
	ChunkID json.RawMessage `json:"chunk_id"`
	Text    json.RawMessage `json:"text"`
	Score   float64         `json:"score"`
}

// UnmarshalJSON accepts any JSON scalar for the string fields, so services
// that send numeric chunk ids decode cleanly. Null counts as missing.
func (s *Snippet) UnmarshalJSON(data []byte) error {
	var raw rawSnippet
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if s.Source, err = scalarString(raw.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if s.ChunkID, err = scalarString(raw.ChunkID); err != nil {
		return fmt.Errorf("chunk_id: %w", err)
	}
	if s.Text, err = scalarString(raw.Text); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	s.Score = raw.Score
	return nil
}

func scalarString(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch t := v.(type) {
	case string:
		return Opt(t), nil
	case json.Number:
		return Opt(t.String()), nil
	case bool:
		return Opt(strconv.FormatBool(t)), nil
	default:
		return nil, fmt.Errorf("expected a scalar, got %s", raw)
	}
}

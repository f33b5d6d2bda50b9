// Package evidence turns retrieved snippets into the tagged CONTEXT block
// appended to a transcript, plus the citations returned to the caller.
package evidence

import (
	"strconv"
	"strings"

	"github.com/gentaxai/gentax/pkg/retrieval"
)

const (
	// DefaultSource names snippets whose backend gave no source.
	DefaultSource = "knowledge_base"

	blockHeader    = "CONTEXT:\n"
	blockSeparator = "\n\n"
)

// Citation points back at one snippet used for the current answer.
type Citation struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	ChunkID string `json:"chunk_id"`
}

// Block is the assembled evidence for one question. The zero Block means
// no evidence.
type Block struct {
	Text      string
	Citations []Citation
}

// Empty reports whether there is no evidence to append.
func (b Block) Empty() bool {
	return b.Text == ""
}

// Assemble renders snippets in input order. Missing sources default to
// DefaultSource, missing chunk ids to the 1-based position, missing text to
// "". Text is trimmed. No snippets yields the zero Block.
func Assemble(snippets []retrieval.Snippet) Block {
	if len(snippets) == 0 {
		return Block{}
	}

	parts := make([]string, 0, len(snippets))
	citations := make([]Citation, 0, len(snippets))
	for i, s := range snippets {
		pos := strconv.Itoa(i + 1)

		source := DefaultSource
		if s.Source != nil {
			source = *s.Source
		}
		chunkID := pos
		if s.ChunkID != nil {
			chunkID = *s.ChunkID
		}
		text := ""
		if s.Text != nil {
			text = strings.TrimSpace(*s.Text)
		}

		parts = append(parts, "["+pos+"] "+source+"#chunk"+chunkID+"\n"+text)
		citations = append(citations, Citation{ID: pos, Source: source, ChunkID: chunkID})
	}

	return Block{
		Text:      blockHeader + strings.Join(parts, blockSeparator),
		Citations: citations,
	}
}

// FromResult maps a retrieval outcome to evidence. A failed retrieval is
// treated exactly like an empty one.
func FromResult(res retrieval.Result) Block {
	if !res.OK() {
		return Block{}
	}
	return Assemble(res.Snippets)
}

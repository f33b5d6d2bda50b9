package keyword

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// packEntry is one snippet in a YAML knowledge pack.
type packEntry struct {
	Source  *string `yaml:"source"`
	ChunkID *string `yaml:"chunk_id"`
	Text    string  `yaml:"text"`
}

type packDoc struct {
	Snippets []packEntry `yaml:"snippets"`
}

// isKnowledgeFile reports whether path has an extension the loader reads.
func isKnowledgeFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDir walks dir and returns every chunk in lexical path order.
// A missing dir yields no chunks.
func LoadDir(dir string) ([]Chunk, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading knowledge dir: %w", err)
	}

	var chunks []Chunk
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isKnowledgeFile(path) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		var fileChunks []Chunk
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			fileChunks, err = loadPack(path)
		default:
			fileChunks, err = loadText(path, rel)
		}
		if err != nil {
			return fmt.Errorf("loading %s: %w", rel, err)
		}
		chunks = append(chunks, fileChunks...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// loadText splits a text or markdown file into blank-line separated
// paragraphs. Chunk ids are 1-based paragraph indexes.
func loadText(path, source string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		chunks []Chunk
		para   []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(para, "\n"))
		para = para[:0]
		if text == "" {
			return
		}
		id := strconv.Itoa(len(chunks) + 1)
		src := source
		chunks = append(chunks, Chunk{Source: &src, ChunkID: &id, Text: text})
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return chunks, nil
}

// loadPack reads a YAML pack: either a top-level list of snippets or a
// mapping with a "snippets" list.
func loadPack(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []packEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var doc packDoc
		if derr := yaml.Unmarshal(data, &doc); derr != nil {
			return nil, fmt.Errorf("parsing pack: %w", derr)
		}
		entries = doc.Snippets
	}

	chunks := make([]Chunk, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{Source: e.Source, ChunkID: e.ChunkID, Text: text})
	}
	return chunks, nil
}

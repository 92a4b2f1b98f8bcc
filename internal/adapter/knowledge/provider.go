package knowledge

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	genericFileName     = "generic.md"
	similarityThreshold = 0.3

	fallbackInstruction = "No specific instructions found. Proceed with standard query " +
		"processing using your default knowledge and reasoning capabilities."
)

// Provider serves investigation instructions from a directory of
// markdown documents. Each document carries a "# Description" section
// used for matching against the caller's question and an
// "# Instructions" section returned on a match. Documents are re-read
// on every lookup; the corpus is small and changes rarely.
type Provider struct {
	dir    string
	logger *slog.Logger
}

// New creates a Provider reading from dir.
func New(dir string, logger *slog.Logger) *Provider {
	return &Provider{
		dir:    dir,
		logger: logger.With("component", "knowledge_provider"),
	}
}

type document struct {
	name         string
	description  string
	instructions string
}

// Instructions returns the instructions of the document whose
// description best matches the query. Falls back to the generic
// document, then to a fixed instruction, so a caller always gets
// something actionable.
func (p *Provider) Instructions(query string) (string, error) {
	docs := p.load()

	var best *document
	bestScore := 0.0
	for i := range docs {
		if docs[i].name == genericFileName {
			continue
		}
		score := similarity(query, docs[i].description)
		if score > bestScore {
			best = &docs[i]
			bestScore = score
		}
	}

	if best != nil && bestScore >= similarityThreshold {
		p.logger.Debug("matched instruction document",
			"document", best.name, "score", bestScore)
		return best.instructions, nil
	}

	for i := range docs {
		if docs[i].name == genericFileName && docs[i].instructions != "" {
			return docs[i].instructions, nil
		}
	}
	return fallbackInstruction, nil
}

func (p *Provider) load() []document {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		p.logger.Warn("knowledge base directory unreadable", "dir", p.dir, "error", err)
		return nil
	}

	var docs []document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(p.dir, entry.Name()))
		if err != nil {
			p.logger.Warn("failed to read knowledge document",
				"file", entry.Name(), "error", err)
			continue
		}
		doc := parseDocument(entry.Name(), string(content))
		if doc.instructions == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// parseDocument splits a markdown file into its top-level sections and
// keeps the description and instructions ones.
func parseDocument(name, content string) document {
	doc := document{name: name}

	var section string
	var buf strings.Builder
	flush := func() {
		text := strings.TrimSpace(buf.String())
		switch section {
		case "description":
			doc.description = text
		case "instructions":
			doc.instructions = text
		}
		buf.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "# ") {
			flush()
			section = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "# ")))
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	return doc
}

// similarity is the fraction of query tokens that also occur in the
// description. Crude, but good enough to pick one document out of a
// small curated corpus.
func similarity(query, description string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	descTokens := make(map[string]struct{})
	for _, tok := range tokenize(description) {
		descTokens[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range queryTokens {
		if _, ok := descTokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Package vault imports flashcard decks from a directory of Markdown files
// and keeps the record store in step with it.
//
// A deck file has optional YAML frontmatter followed by question/answer
// blocks:
//
//	---
//	deck: Spanish verbs
//	id: 6f1c...        # optional, stable deck id
//	---
//	Q: to eat
//	A: comer
//
//	Q: to drink
//	A: beber
//
// A block runs until the next "Q:" line or a "---" separator, so questions
// and answers may span several lines.
package vault

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	separator      = "---"
)

// DeckFile is the parsed content of one deck file.
type DeckFile struct {
	ID    string
	Name  string
	Cards []CardEntry
}

// CardEntry is one question/answer pair from a deck file.
type CardEntry struct {
	Question string
	Answer   string
}

type frontmatter struct {
	Deck string `yaml:"deck"`
	ID   string `yaml:"id,omitempty"`
}

// Parse reads a deck file. name is the file path, used as the deck name
// when neither frontmatter nor a heading provides one. Blocks without both
// a question and an answer are skipped.
func Parse(name string, data []byte) (*DeckFile, error) {
	fm, body := splitFrontmatter(data)

	cards, err := parseCards(body)
	if err != nil {
		return nil, fmt.Errorf("vault: parse %s: %w", name, err)
	}

	df := &DeckFile{ID: strings.TrimSpace(fm.ID), Name: strings.TrimSpace(fm.Deck), Cards: cards}
	if df.Name == "" {
		df.Name = headingTitle(body)
	}
	if df.Name == "" {
		df.Name = strings.TrimSuffix(path.Base(name), ".md")
	}
	return df, nil
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the body. Missing or invalid frontmatter leaves the
// whole content as body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(separator)) {
		return fm, string(data)
	}

	rest := trimmed[len(separator):]
	idx := bytes.Index(rest, []byte("\n"+separator))
	if idx < 0 {
		return fm, string(data)
	}

	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return frontmatter{}, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(separator):]), "\n\r")
	return fm, body
}

func parseCards(body string) ([]CardEntry, error) {
	var (
		cards   []CardEntry
		q, a    []string
		reading *[]string
	)

	flush := func() {
		question := strings.TrimSpace(strings.Join(q, "\n"))
		answer := strings.TrimSpace(strings.Join(a, "\n"))
		if question != "" && answer != "" {
			cards = append(cards, CardEntry{Question: question, Answer: answer})
		}
		q, a, reading = nil, nil, nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == separator:
			flush()
		case strings.HasPrefix(line, questionPrefix):
			flush()
			q = append(q, strings.TrimPrefix(line[len(questionPrefix):], " "))
			reading = &q
		case strings.HasPrefix(line, answerPrefix) && reading == &q:
			a = append(a, strings.TrimPrefix(line[len(answerPrefix):], " "))
			reading = &a
		case reading != nil:
			*reading = append(*reading, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return cards, nil
}

// headingTitle returns the first H1 heading of body, or "".
func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Render writes a deck file that Parse reads back to the same deck.
func Render(df DeckFile) []byte {
	var buf bytes.Buffer
	fmData, _ := yaml.Marshal(frontmatter{Deck: df.Name, ID: df.ID})
	buf.WriteString(separator + "\n")
	buf.Write(fmData)
	buf.WriteString(separator + "\n")
	for i, c := range df.Cards {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(questionPrefix + " " + c.Question + "\n")
		buf.WriteString(answerPrefix + " " + c.Answer + "\n")
	}
	return buf.Bytes()
}

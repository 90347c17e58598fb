package mcpserver

// DeckFormatContract describes the Markdown deck file format that LLM
// consumers should follow when importing decks.
const DeckFormatContract = `# Memoracard Deck Format Contract

Every deck file in the memoracard vault MUST follow this structure.

## Structure

` + "```" + `markdown
---
deck: Spanish verbs     # OPTIONAL – deck name; falls back to the first # heading, then the file name
id: 6f1c0d1e-...        # OPTIONAL – stable deck id; derived from the file path when absent
---

Q: to eat
A: comer

Q: to drink
A: beber
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "`" + `---` + "`" + ` fences must be the
   first thing in the file.
2. **Cards** start with a line beginning ` + "`" + `Q:` + "`" + `, followed by a line beginning
   ` + "`" + `A:` + "`" + `. Both parts may continue over several lines.
3. A card ends at the next ` + "`" + `Q:` + "`" + ` line or at a ` + "`" + `---` + "`" + ` separator line.
4. Blocks missing a question or an answer are ignored.
5. **Questions identify cards.** Editing an answer keeps the card's review history;
   editing a question creates a new card.
6. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes. Hidden
   directories are ignored.
7. **Encoding** is UTF-8 with a trailing newline.
8. Questions are at most 500 characters and answers at most 1000.

## Example

` + "```" + `markdown
---
deck: European capitals
---

Q: Capital of France?
A: Paris

Q: Capital of Portugal?
A: Lisbon
` + "```" + `
`

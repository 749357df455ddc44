package extractor

import (
	"regexp"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
)

var (
	// anyTagHeader matches the start of any field, e.g. "59:", "32A :", "  50K:"
	anyTagHeader = regexp.MustCompile(`^\s*\d{2}[A-Z]?\s*:\s*`)
	lineBreaks   = regexp.MustCompile(`\r\n|\r|\n`)
)

const separatorPrefix = "-----"

type scanState int

const (
	stateClosed scanState = iota
	stateOpen
)

// ExtractBlock collects the lines belonging to the first occurrence of tag.
//
// The header line opens the block and its trailing text (usually the field
// title) is dropped. Following lines are trimmed and kept when non-empty until
// the next tag header or a separator line of five or more dashes; neither
// terminator is included. A missing tag yields an empty block.
func ExtractBlock(text, tag string) models.FieldBlock {
	header := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(tag) + `\s*:\s*(.*)$`)
	block := models.FieldBlock{Tag: tag}

	state := stateClosed
	for _, line := range splitLines(text) {
		switch state {
		case stateClosed:
			if header.MatchString(line) {
				state = stateOpen
			}
		case stateOpen:
			trimmed := strings.TrimSpace(line)
			if anyTagHeader.MatchString(line) || strings.HasPrefix(trimmed, separatorPrefix) {
				return block
			}
			if trimmed != "" {
				block.Lines = append(block.Lines, trimmed)
			}
		}
	}

	return block
}

// ExtractBlocks runs ExtractBlock for every tag, keyed by tag
func ExtractBlocks(text string, tags ...string) map[string]models.FieldBlock {
	blocks := make(map[string]models.FieldBlock, len(tags))
	for _, tag := range tags {
		blocks[tag] = ExtractBlock(text, tag)
	}
	return blocks
}

func splitLines(text string) []string {
	return lineBreaks.Split(text, -1)
}

// CleanLines drops a leading '*' marker from every line and removes lines
// that end up empty.
func CleanLines(lines []string) []string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return cleaned
}

package extractor

import (
	"regexp"
	"strings"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
)

var senderLine = regexp.MustCompile(`(?im)^\s*sender\s*:`)

// ClassifyDirection decides whether a message is outgoing or incoming.
// Rules are checked in order and the first that fires wins:
//  1. "destination" anywhere → OUT
//  2. a line starting with "sender:" → IN
//  3. "sender" anywhere → IN
//  4. otherwise UNKNOWN
func ClassifyDirection(text string) models.Direction {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "destination"):
		return models.DirectionOut
	case senderLine.MatchString(text):
		return models.DirectionIn
	case strings.Contains(lower, "sender"):
		return models.DirectionIn
	default:
		return models.DirectionUnknown
	}
}

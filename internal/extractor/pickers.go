package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/normalize"
)

// verdict is what a rule decides for the line it matched
type verdict int

const (
	verdictPass verdict = iota
	verdictSkip
	verdictTake
	verdictStop
)

// lineRule pairs a predicate with a verdict. Rules are evaluated top to bottom
// and the first predicate that holds decides.
type lineRule struct {
	name string
	when func(line string) bool
	then verdict
}

func evaluate(line string, rules []lineRule) verdict {
	for _, r := range rules {
		if r.when(line) {
			return r.then
		}
	}
	return verdictPass
}

// collect returns up to limit lines that the rules take; limit <= 0 means all.
func collect(lines []string, rules []lineRule, limit int) []string {
	var taken []string
	for _, line := range lines {
		switch evaluate(line, rules) {
		case verdictTake:
			taken = append(taken, line)
			if limit > 0 && len(taken) == limit {
				return taken
			}
		case verdictStop:
			return taken
		}
	}
	return taken
}

func first(lines []string, rules []lineRule) string {
	if taken := collect(lines, rules, 1); len(taken) > 0 {
		return taken[0]
	}
	return ""
}

// LooksLikeAccount reports whether a line carries a digit and is at least six
// characters long once spaces are removed.
func LooksLikeAccount(line string) bool {
	if !strings.ContainsFunc(line, unicode.IsDigit) {
		return false
	}
	return len([]rune(strings.ReplaceAll(line, " ", ""))) >= 6
}

// LooksLikeIdentifierCode reports whether a line has at least four letters and
// is 6 to 20 characters long once whitespace is removed.
func LooksLikeIdentifierCode(line string) bool {
	letters := 0
	compact := 0
	for _, r := range line {
		if isASCIILetter(r) {
			letters++
		}
		if !unicode.IsSpace(r) {
			compact++
		}
	}
	return letters >= 4 && compact >= 6 && compact <= 20
}

func accountNotCode(line string) bool {
	return LooksLikeAccount(line) && !LooksLikeIdentifierCode(line)
}

func isASCIILetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// hasLatinLetter ignores CJK and other scripts, which are narrative text
func hasLatinLetter(line string) bool {
	return strings.ContainsFunc(line, isASCIILetter)
}

func always(string) bool { return true }

var (
	accountRules = []lineRule{
		{name: "account", when: LooksLikeAccount, then: verdictTake},
	}

	identifierRules = []lineRule{
		{name: "account without code", when: accountNotCode, then: verdictSkip},
		{name: "code", when: LooksLikeIdentifierCode, then: verdictTake},
	}

	nameFallbackRules = []lineRule{
		{name: "account", when: LooksLikeAccount, then: verdictSkip},
		{name: "anything else", when: always, then: verdictTake},
	}
)

// PickAccountLine returns the first account-like line
func PickAccountLine(lines []string) string {
	return first(lines, accountRules)
}

func accountIndex(lines []string) int {
	for i, line := range lines {
		if LooksLikeAccount(line) {
			return i
		}
	}
	return -1
}

// PickNameAfterAccount returns the line right after the first account-like
// line, or the first non-account line when there is no such follower.
func PickNameAfterAccount(lines []string) string {
	if i := accountIndex(lines); i >= 0 && i+1 < len(lines) {
		return lines[i+1]
	}
	return first(lines, nameFallbackRules)
}

// PickIdentifierCode returns the first code-like line, normalized to the fixed
// identifier width. Account-like lines that are not code-like are skipped.
func PickIdentifierCode(lines []string) string {
	return normalize.Identifier(first(lines, identifierRules))
}

// PickBankName joins the first two descriptive lines of a bank block with
// " / ", ignoring the line that holds code and pure account lines.
func PickBankName(lines []string, code string) string {
	rules := []lineRule{
		{name: "chosen code", when: func(line string) bool {
			return code != "" && normalize.Identifier(line) == code
		}, then: verdictSkip},
		{name: "account without code", when: accountNotCode, then: verdictSkip},
		{name: "descriptive", when: hasLatinLetter, then: verdictTake},
	}
	return strings.Join(collect(lines, rules, 2), " / ")
}

var (
	inlineAddress  = regexp.MustCompile(`(?i)-\s*ADD\s*:`)
	addressHeader  = regexp.MustCompile(`(?i)^\s*(ADD|ADDRESS|CITY|COUNTRY)\s*:`)
	ibanFragment   = regexp.MustCompile(`(?i)\bIBAN\b\s*:\s*[A-Z0-9\s]+`)
	repeatedSpaces = regexp.MustCompile(`\s{2,}`)
)

var (
	// checked on the line after the inline "- ADD:" tail is cut
	beneficiaryStopRules = []lineRule{
		{name: "address header", when: addressHeader.MatchString, then: verdictStop},
	}
	// checked after IBAN fragments are removed
	beneficiaryKeepRules = []lineRule{
		{name: "blank", when: func(line string) bool { return line == "" }, then: verdictSkip},
		{name: "name fragment", when: always, then: verdictTake},
	}
)

// PickBeneficiaryNameUntilAddress gathers the beneficiary name that follows
// the account line and stops at the first address line. Inline "- ADD:" tails
// and "IBAN: ..." fragments are cut out of each line.
func PickBeneficiaryNameUntilAddress(lines []string) string {
	start := accountIndex(lines) + 1

	var parts []string
	for _, raw := range lines[start:] {
		line := raw
		if loc := inlineAddress.FindStringIndex(line); loc != nil {
			line = line[:loc[0]]
		}
		line = strings.TrimSpace(line)

		if evaluate(line, beneficiaryStopRules) == verdictStop {
			break
		}
		line = strings.TrimSpace(ibanFragment.ReplaceAllString(line, ""))

		if evaluate(line, beneficiaryKeepRules) == verdictTake {
			parts = append(parts, line)
		}
	}

	name := strings.TrimSpace(strings.Join(parts, " "))
	return repeatedSpaces.ReplaceAllString(name, " ")
}

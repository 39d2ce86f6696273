package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a model reply holds no decodable JSON object.
var ErrNoJSON = errors.New("no JSON object in reply")

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	bareKey       = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes the JSON object in a chat model reply into target.
// Replies may be bare JSON, fenced in a markdown code block, embedded in
// prose, or carry the usual model slips: trailing commas, unquoted keys and
// single-quoted strings.
func ParseAIJSON(reply string, target any) error {
	reply = strings.TrimPrefix(strings.TrimSpace(reply), "\ufeff")
	if reply == "" {
		return fmt.Errorf("%w: empty reply", ErrNoJSON)
	}

	for _, candidate := range candidates(reply) {
		if candidate == "" {
			continue
		}
		if json.Unmarshal([]byte(candidate), target) == nil {
			return nil
		}
		if json.Unmarshal([]byte(repair(candidate)), target) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoJSON, truncateString(reply, 100))
}

// candidates lists the substrings of reply worth decoding, most specific first.
func candidates(reply string) []string {
	out := []string{reply}
	if m := fencedBlock.FindStringSubmatch(reply); len(m) > 1 {
		out = append(out, m[1])
	}
	if start := strings.IndexByte(reply, '{'); start >= 0 {
		out = append(out, balancedObject(reply[start:]))
	}
	return out
}

// balancedObject returns the leading {...} of s, honoring quoted strings.
func balancedObject(s string) string {
	depth := 0
	var quote rune
	escape := false
	for i, ch := range s {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

func repair(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = bareKey.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlChars.ReplaceAllString(s, "")
}

// singleToDoubleQuotes rewrites 'value' strings that open after a JSON
// delimiter. Apostrophes inside words are left alone.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inDouble, inSingle, escape := false, false, false
	prev := ' '
	for _, ch := range s {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '\'' && !inDouble:
			if inSingle {
				inSingle = false
				ch = '"'
			} else if strings.ContainsRune(":,[{ ", prev) {
				inSingle = true
				ch = '"'
			}
		}
		b.WriteRune(ch)
		if ch != ' ' {
			prev = ch
		}
	}
	return b.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

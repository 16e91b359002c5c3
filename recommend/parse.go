package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/i2y/moviemood/logging"
)

// MalformedBlockError reports a reply block with text but no key/value line.
type MalformedBlockError struct {
	Index int
	Block string
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("block %d has no \"key: value\" line: %q", e.Index+1, e.Block)
}

// ParseText reads the labelled text format: one block per movie, blocks
// separated by a blank line, one "Key: value" pair per line, optionally
// wrapped in JSON braces and quotes.
//
// Parsing is all or nothing. A single malformed block fails the whole reply.
func ParseText(reply string) ([]MovieRecord, error) {
	var records []MovieRecord
	for i, block := range strings.Split(strings.TrimSpace(reply), "\n\n") {
		block = strings.Trim(strings.TrimSpace(block), "{}")
		if isPunctuation(block) {
			continue
		}

		var m MovieRecord
		pairs := 0
		for _, line := range strings.Split(block, "\n") {
			key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
			if !ok {
				continue
			}
			m.set(cleanKey(key), cleanValue(value))
			pairs++
		}
		if pairs == 0 {
			return nil, &MalformedBlockError{Index: i, Block: block}
		}
		records = append(records, m)
	}
	return records, nil
}

// ParseLenient is ParseText that logs failures and returns no records.
func ParseLenient(ctx context.Context, reply string) []MovieRecord {
	records, err := ParseText(reply)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("error parsing recommendation reply")
		return nil
	}
	return records
}

func cleanKey(key string) string {
	return strings.Trim(strings.TrimSpace(key), `"`)
}

// cleanValue strips quotes, then a trailing comma, then quotes again. A
// value that really ends in a comma or quote loses it.
func cleanValue(value string) string {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	value = strings.Trim(value, ",")
	return strings.Trim(value, `"`)
}

func splitGenres(value string) []string {
	value = strings.ReplaceAll(strings.Trim(value, "[]"), `"`, "")
	return strings.Split(value, ", ")
}

// isPunctuation reports whether block holds nothing but JSON array syntax.
func isPunctuation(block string) bool {
	return strings.Trim(block, "[], \t\r\n") == ""
}

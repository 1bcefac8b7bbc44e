package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/chengzr01/jobscout/internal/llm"
	"github.com/chengzr01/jobscout/internal/profile"
)

// ErrMalformedOutput is returned when the model's reply contains no
// parseable key/value listing. Callers treat it the same as a gateway
// failure: nothing learned this turn.
var ErrMalformedOutput = errors.New("no key/value pairs in model output")

// pairPattern matches repeated "key: value" pairs separated by ", " and
// terminated by "}". Keys and values are runs of word/space characters.
var pairPattern = regexp.MustCompile(`([\w\s]+): ([\w\s]+)(, |})`)

// Extractor derives a partial key/value profile from accumulated dialogue
// by asking the gateway for a delimited listing and parsing it leniently.
type Extractor struct {
	gateway llm.Gateway
}

// NewExtractor creates an Extractor backed by the given gateway.
func NewExtractor(gateway llm.Gateway) *Extractor {
	return &Extractor{gateway: gateway}
}

// Extract sends the extraction prompt plus the full dialogue history and
// parses the reply into a partial mapping. The literal value "None" maps to
// profile.Unknown. There is no retry: a gateway failure or malformed reply
// returns an empty mapping alongside the error, and the caller proceeds as
// if nothing was learned this turn.
func (e *Extractor) Extract(ctx context.Context, history []llm.Message, missingKeys []string) (map[string]string, error) {
	raw, err := e.gateway.Complete(ctx, BuildPrompt(history, missingKeys))
	if err != nil {
		return map[string]string{}, fmt.Errorf("extraction completion: %w", err)
	}
	return Parse(raw)
}

// Parse scans output for "key: value" pairs. Keys and values are trimmed;
// a value of exactly "None" becomes profile.Unknown. Output with no matches
// yields an empty mapping and ErrMalformedOutput.
func Parse(output string) (map[string]string, error) {
	matches := pairPattern.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return map[string]string{}, ErrMalformedOutput
	}

	result := make(map[string]string, len(matches))
	for _, m := range matches {
		key := strings.TrimSpace(m[1])
		value := strings.TrimSpace(m[2])
		if value == "None" {
			result[key] = profile.Unknown
			continue
		}
		result[key] = value
	}
	return result, nil
}

package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/predator4hack/ai-shark-sub001/internal/resilience"
)

// CleanJSON extracts a JSON object from text that may contain markdown code
// fences or surrounding prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// ParseJSON cleans text and unmarshals it into v. Malformed model output is
// transient: a fresh completion may well parse.
func ParseJSON(text string, v any) error {
	if err := json.Unmarshal([]byte(CleanJSON(text)), v); err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "llm: parse json"), 0)
	}
	return nil
}

// CompleteJSON runs req through c under policy and decodes the reply into v.
// Both the call and the decode are retried together. The raw text of the
// last reply is returned so callers can keep an excerpt on failure.
func CompleteJSON(ctx context.Context, c Completer, policy resilience.RetryConfig, req Request, v any) (string, error) {
	var raw string
	if policy.Name == "" {
		policy.Name = req.Operation
	}
	err := resilience.Do(ctx, policy, func(ctx context.Context) error {
		resp, err := c.Complete(ctx, req)
		if err != nil {
			return err
		}
		raw = resp.Text
		return ParseJSON(resp.Text, v)
	})
	return raw, err
}

// CompleteText runs req through c under policy and returns the reply text.
func CompleteText(ctx context.Context, c Completer, policy resilience.RetryConfig, req Request) (*Response, error) {
	if policy.Name == "" {
		policy.Name = req.Operation
	}
	return resilience.DoVal(ctx, policy, func(ctx context.Context) (*Response, error) {
		return c.Complete(ctx, req)
	})
}

package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Per-item status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultConcurrency bounds how many items ProcessBatch runs at once.
const DefaultConcurrency = 4

// Result is the outcome for one item of a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDs reads a tool argument that may be a single ID, a comma-separated
// list, a JSON array encoded as a string, or an array. Duplicates are
// dropped, keeping first-seen order.
func ParseIDs(param any, name string) ([]string, error) {
	var raw []string
	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", name)
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			if err := json.Unmarshal([]byte(s), &raw); err != nil {
				return nil, fmt.Errorf("%s: invalid JSON array: %w", name, err)
			}
			break
		}
		raw = strings.Split(s, ",")
	case []string:
		raw = v
	case []any:
		raw = make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}

	seen := make(map[string]bool, len(raw))
	ids := make([]string, 0, len(raw))
	for i, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			if len(raw) == 1 {
				return nil, fmt.Errorf("%s cannot be empty", name)
			}
			return nil, fmt.Errorf("%s[%d] cannot be empty", name, i)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", name)
	}
	return ids, nil
}

// ParseOptionalList is ParseIDs for arguments that may be absent.
func ParseOptionalList(param any, name string) ([]string, error) {
	if param == nil {
		return nil, nil
	}
	if s, ok := param.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return ParseIDs(param, name)
}

// Process runs fn for every id with at most concurrency calls in flight.
// Results keep the order of ids. A failing item never stops the others;
// only cancellation of ctx does, and items not yet started then report
// the context error.
func Process(ctx context.Context, ids []string, concurrency int, fn func(ctx context.Context, id string) (string, error)) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(ids))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Failure(id, err)
				return nil
			}
			msg, err := fn(ctx, id)
			if err != nil {
				results[i] = Failure(id, err)
				return nil
			}
			results[i] = Success(id, msg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == StatusSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// Format renders results as indented JSON.
func Format(results []Result) string {
	out, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

// Succeeded returns the IDs of successful items.
func Succeeded(results []Result) []string {
	var ids []string
	for _, r := range results {
		if r.Status == StatusSuccess {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func Success(id, message string) Result {
	return Result{ID: id, Status: StatusSuccess, Result: message}
}

func Failure(id string, err error) Result {
	return Result{ID: id, Status: StatusError, Error: err.Error()}
}

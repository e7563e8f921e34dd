package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Decision is the outcome of an ambiguous-title resolution.
type Decision struct {
	Reuse  bool   `json:"reuse"`
	Target string `json:"target,omitempty"` // storage path of the node to reuse
}

// Oracle is an optional external decision capability consulted when the
// deterministic heuristics find no match. Implementations must respect ctx
// cancellation; the resolver imposes its own timeout.
type Oracle interface {
	Decide(ctx context.Context, candidate string, siblings []string, hint string) (Decision, error)
}

// Resolver combines the deterministic Matcher with an optional Oracle.
// The oracle is strictly advisory: any timeout, transport error, or
// malformed response degrades to "no reuse" and never fails the caller.
type Resolver struct {
	Matcher Matcher
	Oracle  Oracle        // nil disables oracle consultation
	Timeout time.Duration // per-call deadline
	Logger  *slog.Logger
}

// DefaultOracleTimeout bounds oracle latency when the config does not say
// otherwise, so an unresponsive oracle can never stall a hierarchy walk.
const DefaultOracleTimeout = 10 * time.Second

// ResolveAmbiguous asks the oracle whether candidate duplicates one of the
// sibling titles. Returns a zero Decision when no oracle is configured or
// the oracle fails. The returned Target is only trusted when it names one of
// the provided siblings.
func (r *Resolver) ResolveAmbiguous(ctx context.Context, candidate string, siblings []string, hint string) Decision {
	if r.Oracle == nil || len(siblings) == 0 {
		return Decision{}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dec, err := r.Oracle.Decide(ctx, candidate, siblings, hint)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("similarity: oracle failed, falling back to heuristics",
				slog.String("candidate", candidate),
				slog.String("error", err.Error()))
		}
		return Decision{}
	}
	if dec.Reuse && dec.Target == "" {
		// Malformed: reuse without a target is unusable.
		return Decision{}
	}
	return dec
}

// HTTPOracle calls an external classifier over HTTP. The request body is
// {"candidate": ..., "siblings": [...], "context": ...} and the expected
// response is {"should_reuse": bool, "selected_id": string}.
type HTTPOracle struct {
	URL    string
	Client *http.Client
}

type oracleRequest struct {
	Candidate string   `json:"candidate"`
	Siblings  []string `json:"siblings"`
	Context   string   `json:"context,omitempty"`
}

type oracleResponse struct {
	ShouldReuse bool   `json:"should_reuse"`
	SelectedID  string `json:"selected_id,omitempty"`
}

// Decide implements Oracle.
func (o *HTTPOracle) Decide(ctx context.Context, candidate string, siblings []string, hint string) (Decision, error) {
	body, err := json.Marshal(oracleRequest{Candidate: candidate, Siblings: siblings, Context: hint})
	if err != nil {
		return Decision{}, fmt.Errorf("similarity: marshal oracle request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("similarity: build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("similarity: oracle call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("similarity: oracle status %d", resp.StatusCode)
	}
	var or oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return Decision{}, fmt.Errorf("similarity: decode oracle response: %w", err)
	}
	return Decision{Reuse: or.ShouldReuse, Target: or.SelectedID}, nil
}

package output

import (
	"encoding/json"
	"fmt"

	"github.com/hazz-dev/netdiag/internal/session"
)

type jsonReport struct {
	session.State
	Verdict session.Verdict `json:"verdict"`
}

// RenderJSON formats a finalized session as indented JSON.
func RenderJSON(st session.State, verdict session.Verdict) (string, error) {
	data, err := json.MarshalIndent(jsonReport{State: st, Verdict: verdict}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	return string(data), nil
}

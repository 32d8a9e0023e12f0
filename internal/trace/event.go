// Package trace decodes orchestration trace payloads and keeps the ordered
// trace log of the current turn.
//
// Payloads arrive loosely typed from the backend. [Decode] turns them into an
// [Event], a tagged union keyed by [Kind]; anything it cannot classify
// becomes [KindUnclassified] instead of failing, and the original bytes are
// kept in Event.Raw for detail views.
package trace

import (
	"encoding/json"
	"strings"
)

// Kind identifies the orchestration step a trace describes.
type Kind string

const (
	KindPreProcessing  Kind = "PRE_PROCESSING"
	KindOrchestration  Kind = "ORCHESTRATION"
	KindPostProcessing Kind = "POST_PROCESSING"
	KindError          Kind = "ERROR"
	KindUnclassified   Kind = "UNCLASSIFIED"
)

// ErrorSummary is the summary carried by locally synthesized error traces.
const ErrorSummary = "Error occurred"

// Label returns the short human label used by the trace log view.
func (k Kind) Label() string {
	switch k {
	case KindPreProcessing:
		return "Pre-processing"
	case KindOrchestration:
		return "Orchestration"
	case KindPostProcessing:
		return "Post-processing"
	case KindError:
		return "Error"
	default:
		return "Processing"
	}
}

// ParseKind maps a wire type string to a Kind. Matching ignores case because
// the web client itself emitted lowercase "error".
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindPreProcessing, KindOrchestration, KindPostProcessing, KindError:
		return k
	default:
		return KindUnclassified
	}
}

// AgentRef identifies one agent in a caller chain.
type AgentRef struct {
	AgentID string
}

// Event is one immutable trace record.
type Event struct {
	Kind    Kind
	Summary string

	// CallerChain lists agents root to leaf. nil means the payload carried no
	// chain; a non-nil empty slice means it carried an empty one.
	CallerChain []AgentRef

	// FailureReason is set on error traces.
	FailureReason string

	// Rationale is modelInvocationOutput.rationale.text on orchestration steps.
	Rationale string

	// Raw is the payload exactly as received (or synthesized).
	Raw json.RawMessage
}

// HasCallerChain reports whether the payload carried a callerChain field.
func (e Event) HasCallerChain() bool {
	return e.CallerChain != nil
}

// ChainIDs returns the caller chain as a list of agent IDs.
func (e Event) ChainIDs() []string {
	if e.CallerChain == nil {
		return nil
	}
	ids := make([]string, len(e.CallerChain))
	for i, ref := range e.CallerChain {
		ids[i] = ref.AgentID
	}
	return ids
}

// Leaf returns the last agent in the caller chain.
func (e Event) Leaf() (AgentRef, bool) {
	if len(e.CallerChain) == 0 {
		return AgentRef{}, false
	}
	return e.CallerChain[len(e.CallerChain)-1], true
}

type wireCaller struct {
	AgentID       string `json:"agentId"`
	AgentAliasArn string `json:"agentAliasArn"`
}

type wireEvent struct {
	Type                  string          `json:"type"`
	Summary               string          `json:"summary"`
	CallerChain           *[]wireCaller   `json:"callerChain"`
	FailureReason         string          `json:"failureReason"`
	ModelInvocationOutput json.RawMessage `json:"modelInvocationOutput"`
}

type wireOutput struct {
	Rationale *struct {
		Text string `json:"text"`
	} `json:"rationale"`
}

// Decode classifies a raw trace payload. It never fails: payloads that are
// not JSON objects, or whose fields have the wrong types, decode to an
// unclassified event that still carries the raw bytes.
func Decode(raw json.RawMessage) Event {
	ev := Event{Kind: KindUnclassified, Raw: append(json.RawMessage(nil), raw...)}

	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return ev
	}

	ev.Kind = ParseKind(w.Type)
	ev.Summary = w.Summary
	ev.FailureReason = w.FailureReason

	if w.CallerChain != nil {
		ev.CallerChain = make([]AgentRef, 0, len(*w.CallerChain))
		for _, c := range *w.CallerChain {
			id := c.AgentID
			if id == "" {
				id = c.AgentAliasArn
			}
			ev.CallerChain = append(ev.CallerChain, AgentRef{AgentID: id})
		}
	}

	if ev.Kind == KindOrchestration && len(w.ModelInvocationOutput) > 0 {
		var out wireOutput
		if json.Unmarshal(w.ModelInvocationOutput, &out) == nil && out.Rationale != nil {
			ev.Rationale = out.Rationale.Text
		}
	}
	return ev
}

// NewError synthesizes the error trace recorded when a turn submission fails.
func NewError(reason string) Event {
	raw, _ := json.Marshal(map[string]string{
		"type":          string(KindError),
		"summary":       ErrorSummary,
		"failureReason": reason,
	})
	return Event{
		Kind:          KindError,
		Summary:       ErrorSummary,
		FailureReason: reason,
		Raw:           raw,
	}
}

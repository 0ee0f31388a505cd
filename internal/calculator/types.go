package calculator

// CreateSessionRequest is the JSON body for POST /calculator/sessions.
type CreateSessionRequest struct {
	Slot string `json:"slot"` // store slot, server default when empty
}

// EventRequest is one user event. An empty type means "press".
type EventRequest struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// OutcomeResponse reports what one event did.
type OutcomeResponse struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	Applied  bool   `json:"applied"`
	Resolved bool   `json:"resolved"`
	Result   string `json:"result,omitempty"` // rendered, so ∞ survives JSON
	Error    string `json:"error,omitempty"`
}

// EventResponse is the JSON response for POST /calculator/sessions/{id}/events.
type EventResponse struct {
	Session View            `json:"session"`
	Outcome OutcomeResponse `json:"outcome"`
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Events []EventRequest `json:"events"`
}

// EvaluateResponse is the JSON response for POST /calculator/evaluate.
type EvaluateResponse struct {
	Transcript   string            `json:"transcript"`
	Lines        []string          `json:"lines"`
	TrailingLine string            `json:"trailing_line"`
	Steps        []OutcomeResponse `json:"steps"`
}

// OperationResponse describes one registry entry.
type OperationResponse struct {
	Token    string `json:"token"`
	Arity    int    `json:"arity"`
	Template string `json:"template"`
}

func newOutcomeResponse(out Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Type:     string(out.Event.Kind),
		Token:    out.Event.Token,
		Applied:  out.Applied,
		Resolved: out.Resolved,
	}
	if out.Resolved {
		resp.Result = Render(out.Result, false)
	}
	if out.Err != nil {
		resp.Error = displayMessage(out.Err)
	}
	return resp
}

// toEvent validates a request event.
func (r EventRequest) toEvent() (Event, error) {
	kind := EventPress
	if r.Type != "" {
		k, err := ParseEventKind(r.Type)
		if err != nil {
			return Event{}, err
		}
		kind = k
	}
	return Event{Kind: kind, Token: r.Token}, nil
}

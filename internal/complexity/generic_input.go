package complexity

import "encoding/json"

// GenericChannelInput is one channel entry in the GenericInput JSON format.
type GenericChannelInput struct {
	ID string  `json:"id"`
	H  float64 `json:"h"`
}

// GenericInput is the generic JSON input adapter: any upstream metrics
// source can produce this shape and feed it to ComplexityEngine without a
// custom adapter.
type GenericInput struct {
	TimestampMs uint64                `json:"timestamp_ms"`
	HBytes      float64               `json:"h_bytes"`
	TC          *float64              `json:"tc,omitempty"`
	HJoint      *float64              `json:"h_joint,omitempty"`
	R           *float64              `json:"r,omitempty"`
	Channels    []GenericChannelInput `json:"channels,omitempty"`
}

// NewGenericInput creates a GenericInput with only the required fields.
func NewGenericInput(timestampMs uint64, hBytes float64) GenericInput {
	return GenericInput{TimestampMs: timestampMs, HBytes: hBytes}
}

// WithTC attaches total correlation.
func (g GenericInput) WithTC(tc float64) GenericInput {
	g.TC = floatPtr(tc)
	return g
}

// WithHJoint attaches joint entropy.
func (g GenericInput) WithHJoint(hJoint float64) GenericInput {
	g.HJoint = floatPtr(hJoint)
	return g
}

// WithR attaches the resilience index.
func (g GenericInput) WithR(r float64) GenericInput {
	g.R = floatPtr(r)
	return g
}

// WithChannel appends one channel's entropy.
func (g GenericInput) WithChannel(id string, h float64) GenericInput {
	g.Channels = append(g.Channels, GenericChannelInput{ID: id, H: h})
	return g
}

// Build finalizes the builder into an InputSnapshot.
func (g GenericInput) Build() InputSnapshot {
	return g.ToInputSnapshot()
}

// ToInputSnapshot implements InputAdapter.
func (g GenericInput) ToInputSnapshot() InputSnapshot {
	entropies := make([]ChannelEntropy, len(g.Channels))
	for i, ch := range g.Channels {
		entropies[i] = ChannelEntropy{ChannelID: ch.ID, H: ch.H}
	}
	return InputSnapshot{
		TimestampMs:      g.TimestampMs,
		TC:               g.TC,
		HJoint:           g.HJoint,
		HBytes:           g.HBytes,
		R:                g.R,
		ChannelEntropies: entropies,
		Source:           "generic-json",
	}
}

// GenericInputFromJSON parses a GenericInput from its JSON form.
func GenericInputFromJSON(data []byte) (GenericInput, error) {
	var g GenericInput
	err := json.Unmarshal(data, &g)
	return g, err
}

// ToJSON serializes a GenericInput.
func (g GenericInput) ToJSON() ([]byte, error) {
	return json.Marshal(g)
}

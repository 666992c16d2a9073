package metrics

import (
	"encoding/json"

	"github.com/fathomio/fathom-core/internal/resilience"
)

// SchemaVersion is embedded in every serialized Snapshot as the "version"
// field.
const SchemaVersion = 1

type jsonChannelEntropy struct {
	ID string  `json:"id"`
	H  float64 `json:"h"`
}

type jsonSignalMetrics struct {
	HPerChannel []jsonChannelEntropy `json:"h_per_channel"`
	HJoint      float64              `json:"h_joint"`
	TotalCorr   float64              `json:"total_corr"`
	Valid       bool                 `json:"valid"`
}

type jsonPayloadMetrics struct {
	FrameSizeBytes int                `json:"frame_size_bytes"`
	HBytes         float64            `json:"h_bytes"`
	Histogram      *[256]uint32       `json:"histogram,omitempty"`
	PerChannel     map[string]float64 `json:"per_channel,omitempty"`
}

type jsonCriticality struct {
	ID     string  `json:"id"`
	DeltaR float64 `json:"delta_r"`
}

type jsonResilienceMetrics struct {
	R           *float64          `json:"r,omitempty"`
	Zone        string            `json:"zone"`
	Criticality []jsonCriticality `json:"criticality,omitempty"`
	Valid       bool              `json:"valid"`
}

type jsonSnapshot struct {
	Version     int                    `json:"version"`
	TimestampMs uint64                 `json:"timestamp_ms"`
	Signal      *jsonSignalMetrics     `json:"signal,omitempty"`
	Payload     *jsonPayloadMetrics    `json:"payload,omitempty"`
	Resilience  *jsonResilienceMetrics `json:"resilience,omitempty"`
}

// MarshalJSON implements the stable wire format: field names
// timestamp_ms, signal, payload, resilience, version.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := jsonSnapshot{Version: SchemaVersion, TimestampMs: s.TimestampMs}

	if s.HasSignal {
		perChannel := make([]jsonChannelEntropy, 0, len(s.Signal.ChannelOrder))
		for _, id := range s.Signal.ChannelOrder {
			perChannel = append(perChannel, jsonChannelEntropy{ID: id, H: s.Signal.HMarginal[id]})
		}
		out.Signal = &jsonSignalMetrics{
			HPerChannel: perChannel,
			HJoint:      s.Signal.HJoint,
			TotalCorr:   s.Signal.TC,
			Valid:       s.Signal.Valid,
		}
	}

	if s.HasPayload {
		jp := &jsonPayloadMetrics{
			FrameSizeBytes: s.Payload.FrameSizeBytes,
			HBytes:         s.Payload.FrameEntropy,
			PerChannel:     s.Payload.PerChannel,
		}
		if s.Payload.HasHistogram {
			hist := s.Payload.Histogram
			jp.Histogram = &hist
		}
		out.Payload = jp
	}

	if s.HasResilience {
		jr := &jsonResilienceMetrics{Zone: s.Resilience.Zone.String(), Valid: s.Resilience.Valid}
		if s.Resilience.Valid {
			r := s.Resilience.R
			jr.R = &r
		}
		if len(s.Resilience.Criticality) > 0 && s.HasSignal {
			jr.Criticality = make([]jsonCriticality, 0, len(s.Resilience.Criticality))
			for _, id := range s.Signal.ChannelOrder {
				if dr, ok := s.Resilience.Criticality[id]; ok {
					jr.Criticality = append(jr.Criticality, jsonCriticality{ID: id, DeltaR: dr})
				}
			}
		}
		out.Resilience = jr
	}

	return json.Marshal(out)
}

// UnmarshalJSON reconstructs a Snapshot from its wire form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in jsonSnapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*s = Snapshot{TimestampMs: in.TimestampMs}

	if in.Signal != nil {
		hMarginal := make(map[string]float64, len(in.Signal.HPerChannel))
		order := make([]string, 0, len(in.Signal.HPerChannel))
		for _, ce := range in.Signal.HPerChannel {
			hMarginal[ce.ID] = ce.H
			order = append(order, ce.ID)
		}
		s.HasSignal = true
		s.Signal.HJoint = in.Signal.HJoint
		s.Signal.TC = in.Signal.TotalCorr
		s.Signal.Valid = in.Signal.Valid
		s.Signal.HMarginal = hMarginal
		s.Signal.ChannelOrder = order
	}

	if in.Payload != nil {
		s.HasPayload = true
		s.Payload.FrameSizeBytes = in.Payload.FrameSizeBytes
		s.Payload.FrameEntropy = in.Payload.HBytes
		s.Payload.PerChannel = in.Payload.PerChannel
		if in.Payload.Histogram != nil {
			s.Payload.Histogram = *in.Payload.Histogram
			s.Payload.HasHistogram = true
		}
	}

	if in.Resilience != nil {
		s.HasResilience = true
		s.Resilience.Valid = in.Resilience.Valid
		if in.Resilience.R != nil {
			s.Resilience.R = *in.Resilience.R
		}
		switch in.Resilience.Zone {
		case "healthy":
			s.Resilience.Zone = resilience.Healthy
		case "attention":
			s.Resilience.Zone = resilience.Attention
		default:
			s.Resilience.Zone = resilience.Critical
		}
		if len(in.Resilience.Criticality) > 0 {
			crit := make(map[string]float64, len(in.Resilience.Criticality))
			for _, c := range in.Resilience.Criticality {
				crit[c.ID] = c.DeltaR
			}
			s.Resilience.Criticality = crit
		}
	}

	return nil
}

// ToJSON serializes the snapshot to its stable wire form.
func (s *Snapshot) ToJSON() ([]byte, error) {
	return s.MarshalJSON()
}

// FromJSON parses a Snapshot previously produced by ToJSON/MarshalJSON.
func FromJSON(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &s, nil
}

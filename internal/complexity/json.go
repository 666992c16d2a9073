package complexity

import (
	"encoding/json"

	"github.com/fathomio/fathom-core/internal/anomaly"
	"github.com/fathomio/fathom-core/internal/structure"
)

// SchemaVersion is embedded in every serialized Snapshot as the "version"
// field.
const SchemaVersion = 1

type jsonBaselineStatus struct {
	Locked             bool   `json:"locked"`
	ValidSnapshotsSeen int    `json:"valid_snapshots_seen,omitempty"`
	ElapsedMs          uint64 `json:"elapsed_ms,omitempty"`
}

type jsonEdge struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	Weight float64 `json:"weight"`
}

type jsonSLite struct {
	Edges []jsonEdge `json:"edges"`
	Break bool       `json:"break"`
}

type jsonEvent struct {
	Type         string  `json:"type"`
	Severity     string  `json:"severity"`
	TsMs         uint64  `json:"ts_ms"`
	Metric       string  `json:"metric"`
	Value        float64 `json:"value"`
	BaselineMean float64 `json:"baseline_mean"`
	BaselineStd  float64 `json:"baseline_std"`
	Z            float64 `json:"z"`
	Message      string  `json:"message"`
}

type jsonBaselineStat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

type jsonSnapshot struct {
	Version        int                         `json:"version"`
	TimestampMs    uint64                      `json:"timestamp_ms"`
	BaselineStatus jsonBaselineStatus          `json:"baseline_status"`
	Deltas         map[string]float64          `json:"deltas"`
	ZScores        map[string]float64          `json:"z_scores"`
	SLite          *jsonSLite                  `json:"s_lite,omitempty"`
	BaselineStats  map[string]jsonBaselineStat `json:"baseline_stats,omitempty"`
	Events         []jsonEvent                 `json:"events"`
}

// MarshalJSON implements the stable wire format: field names
// timestamp_ms, deltas, z_scores, s_lite, events, baseline_status, version.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := jsonSnapshot{
		Version:     SchemaVersion,
		TimestampMs: s.TimestampMs,
		BaselineStatus: jsonBaselineStatus{
			Locked:             s.BaselineStatus.Locked,
			ValidSnapshotsSeen: s.BaselineStatus.ValidSnapshotsSeen,
			ElapsedMs:          s.BaselineStatus.ElapsedMs,
		},
		Events: make([]jsonEvent, 0, len(s.Events)),
	}

	if s.HasDeltas {
		out.Deltas = s.Deltas
		out.ZScores = s.ZScores
		// A locked baseline with zero tracked keys still has deltas
		// "present"; emit {} rather than null so the flag survives a
		// round trip.
		if out.Deltas == nil {
			out.Deltas = map[string]float64{}
		}
		if out.ZScores == nil {
			out.ZScores = map[string]float64{}
		}
	}

	if s.SLite != nil {
		edges := make([]jsonEdge, len(s.SLite.Edges))
		for i, e := range s.SLite.Edges {
			edges[i] = jsonEdge{A: e.A, B: e.B, Weight: e.Weight}
		}
		out.SLite = &jsonSLite{Edges: edges, Break: s.SLite.Break}
	}

	if len(s.BaselineStats) > 0 {
		out.BaselineStats = make(map[string]jsonBaselineStat, len(s.BaselineStats))
		for key, st := range s.BaselineStats {
			out.BaselineStats[key] = jsonBaselineStat{Mean: st.Mean, Std: st.Std, N: st.N}
		}
	}

	for _, ev := range s.Events {
		out.Events = append(out.Events, jsonEvent{
			Type:         ev.Type.String(),
			Severity:     ev.Severity.String(),
			TsMs:         ev.TimestampMs,
			Metric:       ev.MetricName,
			Value:        ev.ObservedValue,
			BaselineMean: ev.BaselineMean,
			BaselineStd:  ev.BaselineStd,
			Z:            ev.Z,
			Message:      ev.Message,
		})
	}

	return json.Marshal(out)
}

// UnmarshalJSON reconstructs a Snapshot from its wire form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in jsonSnapshot
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*s = Snapshot{
		TimestampMs: in.TimestampMs,
		BaselineStatus: BaselineStatus{
			Locked:             in.BaselineStatus.Locked,
			ValidSnapshotsSeen: in.BaselineStatus.ValidSnapshotsSeen,
			ElapsedMs:          in.BaselineStatus.ElapsedMs,
		},
	}

	if in.Deltas != nil || in.ZScores != nil {
		s.HasDeltas = true
		s.Deltas = in.Deltas
		s.ZScores = in.ZScores
	}

	if in.SLite != nil {
		edges := make([]structure.Edge, len(in.SLite.Edges))
		for i, e := range in.SLite.Edges {
			edges[i] = structure.Edge{A: e.A, B: e.B, Weight: e.Weight}
		}
		s.SLite = &SLite{Edges: edges, Break: in.SLite.Break}
	}

	if len(in.BaselineStats) > 0 {
		s.BaselineStats = make(map[string]BaselineStat, len(in.BaselineStats))
		for key, st := range in.BaselineStats {
			s.BaselineStats[key] = BaselineStat{Mean: st.Mean, Std: st.Std, N: st.N}
		}
	}

	for _, ev := range in.Events {
		t, _ := anomaly.EventTypeFromString(ev.Type)
		sev, _ := anomaly.SeverityFromString(ev.Severity)
		s.Events = append(s.Events, anomaly.Event{
			Type:          t,
			Severity:      sev,
			TimestampMs:   ev.TsMs,
			MetricName:    ev.Metric,
			ObservedValue: ev.Value,
			BaselineMean:  ev.BaselineMean,
			BaselineStd:   ev.BaselineStd,
			Z:             ev.Z,
			Message:       ev.Message,
		})
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

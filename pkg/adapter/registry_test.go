package adapter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenericJSONFactoryRegisteredByDefault(t *testing.T) {
	require.Contains(t, Names(), "generic-json")
}

func TestBuildGenericJSON(t *testing.T) {
	payload := []byte(`{"timestamp_ms":1000,"h_bytes":3.5,"tc":0.2}`)
	a, err := Build("generic-json", payload)
	require.NoError(t, err)

	snap := a.ToInputSnapshot()
	require.Equal(t, uint64(1000), snap.TimestampMs)
	require.InDelta(t, 3.5, snap.HBytes, 1e-9)
	require.NotNil(t, snap.TC)
	require.InDelta(t, 0.2, *snap.TC, 1e-9)
}

func TestGetUnknownFactory(t *testing.T) {
	_, err := Get("does-not-exist")
	require.Error(t, err)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		Register(genericJSONFactory{})
	})
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, "")

	log.Debug("hidden")
	log.Info("images confirmed", "count", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "images confirmed", entry["msg"])
	assert.Equal(t, "amenitymap", entry["service"])
	assert.EqualValues(t, 2, entry["count"])
}

func TestDevelopmentLogsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true, "").Debug("credential issued", "key", "amenities/pending/x.jpg")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "key=amenities/pending/x.jpg")
}

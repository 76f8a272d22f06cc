package whispercpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FloatSegments(t *testing.T) {
	doc := `{
		"language": "en",
		"segments": [
			{"start": 0.0, "end": 4.2, "text": " Hello world ",
			 "words": [
				{"start": 0.1, "end": 0.6, "word": " Hello", "probability": 0.97},
				{"start": 0.7, "end": 1.2, "word": "world ", "probability": 0.91},
				{"start": 1.2, "end": 1.2, "word": "  "}
			 ]},
			{"start": 4.2, "end": 8.0, "text": "Second segment"}
		]
	}`
	tr, err := Normalize([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "en", tr.Language)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "Hello world", tr.Segments[0].Text)
	require.Len(t, tr.Segments[0].Words, 2)
	assert.Equal(t, "Hello", tr.Segments[0].Words[0].Word)
	assert.Equal(t, 0.97, tr.Segments[0].Words[0].Confidence)
	assert.Equal(t, "Hello world Second segment", tr.Text)
}

func TestNormalize_ClockTimestamps(t *testing.T) {
	doc := `{
		"result": {"language": "de"},
		"transcription": [
			{"timestamps": {"from": "00:00:00,000", "to": "00:00:03,500"}, "text": " Guten Tag"},
			{"timestamps": {"from": "00:01:02.250", "to": "00:01:05.000"}, "text": "noch ein Satz"}
		]
	}`
	tr, err := Normalize([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "de", tr.Language)
	require.Len(t, tr.Segments, 2)
	assert.InDelta(t, 0.0, tr.Segments[0].Start, 1e-9)
	assert.InDelta(t, 3.5, tr.Segments[0].End, 1e-9)
	assert.InDelta(t, 62.25, tr.Segments[1].Start, 1e-9)
	assert.InDelta(t, 65.0, tr.Segments[1].End, 1e-9)
}

func TestNormalize_NoSegments(t *testing.T) {
	_, err := Normalize([]byte(`{"language":"en"}`))
	assert.Error(t, err)
}

func TestNormalize_MalformedJSON(t *testing.T) {
	_, err := Normalize([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	v, err := parseClock("01:02:03.500")
	require.NoError(t, err)
	assert.InDelta(t, 3723.5, v, 1e-9)

	_, err = parseClock("99.5")
	assert.Error(t, err)
}

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "notify without data",
			raw:  `{"event":"notify"}`,
			want: Notify{},
		},
		{
			name: "notify ignores data",
			raw:  `{"event":"notify","data":{"anything":1}}`,
			want: Notify{},
		},
		{
			name: "message",
			raw:  `{"event":"message","data":{"message":"hello","level":"warn"}}`,
			want: Message{Message: "hello", Level: LevelWarn},
		},
		{
			name: "single result",
			raw:  `{"event":"singleResult","data":{"message":"logs in","passed":true}}`,
			want: Result{Message: "logs in", Passed: true},
		},
		{
			name: "testing complete",
			raw: `{"event":"testingComplete","data":{
				"results":[{"message":"a","passed":true},{"message":"b","passed":false}],
				"fullResults":{"name":"Cavy","testCases":[{"description":"a","passed":true,"time":1.2}]},
				"errorCount":1,"duration":3.5}}`,
			want: Report{
				Results: []Result{{Message: "a", Passed: true}, {Message: "b"}},
				FullResults: ResultTree{
					Name:      "Cavy",
					TestCases: []TestCase{{Description: "a", Passed: true, Time: 1.2}},
				},
				ErrorCount: 1,
				Duration:   3.5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.raw))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeDropsUnrecognized(t *testing.T) {
	inputs := []string{
		``,
		`not json`,
		`[1,2,3]`,
		`{"data":{"message":"x"}}`,
		`{"event":"bogus","data":{}}`,
		`{"event":"singleResult"}`,
		`{"event":"singleResult","data":null}`,
		`{"event":"singleResult","data":"passed"}`,
		`{"event":"singleResult","data":{"passed":"yes"}}`,
		`{"event":"testingComplete","data":[]}`,
		`{"event":42}`,
	}

	for _, raw := range inputs {
		assert.Nil(t, Decode([]byte(raw)), "input %q", raw)
	}
}

func TestLevelKnown(t *testing.T) {
	for _, l := range []Level{LevelLog, LevelDebug, LevelWarn, LevelError} {
		assert.True(t, l.Known(), "level %q", l)
	}
	for _, l := range []Level{"", "info", "LOG", "trace"} {
		assert.False(t, l.Known(), "level %q", l)
	}
}

func TestResultTreeFailures(t *testing.T) {
	tree := ResultTree{TestCases: []TestCase{
		{Description: "a", Passed: true},
		{Description: "b"},
		{Description: "c"},
	}}
	assert.Equal(t, 2, tree.Failures())
	assert.Zero(t, ResultTree{}.Failures())
}

func TestEncodeDecode(t *testing.T) {
	events := []Event{
		Notify{},
		Message{Message: "m", Level: LevelDebug},
		Result{Message: "r", Passed: true},
		Report{ErrorCount: 2, Duration: 1.5, FullResults: ResultTree{TestCases: []TestCase{}}},
	}

	for _, ev := range events {
		data, err := Encode(ev)
		require.NoError(t, err)
		assert.Equal(t, ev, Decode(data))
	}

	data, err := Encode(Notify{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notify"}`, string(data))
}

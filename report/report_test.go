package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastercactapus/idexcal/coord"
	"github.com/mastercactapus/idexcal/offset"
)

var result = offset.Result{
	RunID:        "run-1",
	Axis:         coord.X,
	Count:        2,
	Left:         40.2,
	Right:        40.5,
	Offset:       -0.3,
	LeftSamples:  []float64{40, 40.5},
	RightSamples: []float64{40.5, 40.5},
}

func TestText_Default(t *testing.T) {
	var buf bytes.Buffer
	txt, err := NewText(&buf, "", nil)
	require.NoError(t, err)

	require.NoError(t, txt.Report(result))
	assert.Equal(t, "measured X: -0.300\n", buf.String())
}

func TestText_Template(t *testing.T) {
	var buf bytes.Buffer
	txt, err := NewText(&buf, "{{ run }} {{ axis }} {{ left|floatformat:1 }}/{{ right|floatformat:1 }} n={{ count }}", nil)
	require.NoError(t, err)

	s, err := txt.Render(result)
	require.NoError(t, err)
	assert.Equal(t, "run-1 X 40.2/40.5 n=2", s)

	_, err = NewText(&buf, "{{ offset", nil)
	assert.Error(t, err)
}

type token struct{ err error }

func (t token) Wait() bool                     { return true }
func (t token) WaitTimeout(time.Duration) bool { return true }
func (t token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t token) Error() error { return t.err }

type publisher struct {
	topic    string
	retained bool
	payload  []byte
	err      error
}

func (p *publisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topic = topic
	p.retained = retained
	p.payload = payload.([]byte)
	return token{err: p.err}
}

func TestMQTT_Report(t *testing.T) {
	pub := &publisher{}
	m := &MQTT{Client: pub, Topic: "printer/offset"}
	require.NoError(t, m.Report(result))

	assert.Equal(t, "printer/offset", pub.topic)
	assert.True(t, pub.retained)
	var got offset.Result
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, result.Offset, got.Offset)
	assert.Equal(t, coord.X, got.Axis)

	pub.err = errors.New("broker gone")
	assert.Error(t, m.Report(result))
}

func TestMulti(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	m := Multi{
		Func(func(offset.Result) error { calls = append(calls, "a"); return boom }),
		Func(func(offset.Result) error { calls = append(calls, "b"); return nil }),
	}
	assert.Equal(t, boom, m.Report(result))
	assert.Equal(t, []string{"a", "b"}, calls)
}

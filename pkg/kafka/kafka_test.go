package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "alice", Value: payload{Type: "created", Owner: "alice"}},
		{Key: "bob", Value: payload{Type: "deleted", Owner: "bob"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "alice", string(msgs[0].Key))
	assert.JSONEq(t, `{"type":"created","owner":"alice"}`, string(msgs[0].Value))

	_, err = encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[payload]([]byte(`{"type":"updated","owner":"carol"}`))
	require.NoError(t, err)
	assert.Equal(t, payload{Type: "updated", Owner: "carol"}, got)

	_, err = DecodeJSON[payload]([]byte(`not json`))
	assert.Error(t, err)
}

func TestDialAny(t *testing.T) {
	ctx := context.Background()

	err := dialAny(ctx, nil, kafka.DialContext)
	assert.EqualError(t, err, "no kafka brokers configured")

	var tried []string
	refuse := func(_ context.Context, _, address string) (*kafka.Conn, error) {
		tried = append(tried, address)
		return nil, errors.New("connection refused")
	}
	err = dialAny(ctx, []string{"k1:9092", "k2:9092"}, refuse)
	require.Error(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, tried)
	assert.Contains(t, err.Error(), "k1:9092: connection refused")
	assert.Contains(t, err.Error(), "k2:9092: connection refused")
}

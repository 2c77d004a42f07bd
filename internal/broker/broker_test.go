package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqguard/internal/ident"
)

func TestNewDefaultsToMQTT(t *testing.T) {
	client, err := New(ident.Broker{Name: "b1", Host: "localhost", Port: 1883, Topics: []string{"a"}}, nil)
	require.NoError(t, err)
	_, ok := client.(*mqttClient)
	assert.True(t, ok)
	assert.Equal(t, "b1", client.Name())
}

func TestNewSelectsMQTTExplicitly(t *testing.T) {
	client, err := New(ident.Broker{Name: "b1", Transport: "mqtt", Topics: []string{"a"}}, nil)
	require.NoError(t, err)
	_, ok := client.(*mqttClient)
	assert.True(t, ok)
}

func TestNewSelectsNATS(t *testing.T) {
	client, err := New(ident.Broker{Name: "b2", Transport: "nats", Topics: []string{"a"}}, nil)
	require.NoError(t, err)
	_, ok := client.(*natsClient)
	assert.True(t, ok)
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	_, err := New(ident.Broker{Name: "b3", Transport: "amqp", Topics: []string{"a"}}, nil)
	require.Error(t, err)
}

package broker

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams_Addr(t *testing.T) {
	p := Params{Host: "localhost", Port: 5672}
	assert.Equal(t, "localhost:5672", p.Addr())

	p = Params{Host: "::1", Port: 5672}
	assert.Equal(t, "[::1]:5672", p.Addr())
}

func TestParams_StringOmitsPassword(t *testing.T) {
	p := Params{Host: "mq", Port: 5672, VHost: "/", User: "collector", Password: "s3cret"}
	assert.Equal(t, "amqp://collector@mq:5672/", p.String())
	assert.NotContains(t, p.String(), "s3cret")

	p.VHost = "monitoring"
	assert.Equal(t, "amqp://collector@mq:5672/monitoring", p.String())
}

func TestConnectionError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := error(&ConnectionError{Addr: "mq:5672", Err: inner})

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "mq:5672")
}

func TestAMQPDialer_RefusedIsConnectionError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	p := Params{
		Host:        "127.0.0.1",
		Port:        addr.Port,
		VHost:       "/",
		User:        "collector",
		Password:    "pw",
		DialTimeout: time.Second,
	}

	conn, err := NewAMQPDialer().Dial(context.Background(), p)
	require.Error(t, err)
	assert.Nil(t, conn)

	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(addr.Port), ce.Addr)
}

func TestAMQPDialer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAMQPDialer().Dial(ctx, Params{Host: "127.0.0.1", Port: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

// Package broker opens AMQP 0-9-1 connections to the monitoring broker
// and exposes the narrow channel surface the delivery pipeline needs.
package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

const DefaultDialTimeout = 10 * time.Second

// Params are the connection parameters for one delivery call.
type Params struct {
	Host        string
	Port        int
	VHost       string
	User        string
	Password    string
	DialTimeout time.Duration
}

// Addr returns host:port.
func (p Params) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// String omits the password.
func (p Params) String() string {
	return fmt.Sprintf("amqp://%s@%s%s", p.User, p.Addr(), vhostPath(p.VHost))
}

func vhostPath(vhost string) string {
	if vhost == "" || vhost == "/" {
		return "/"
	}
	return "/" + vhost
}

// Dialer opens broker connections.
type Dialer interface {
	Dial(ctx context.Context, p Params) (Connection, error)
}

// Connection is an open broker connection.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Channel is an open channel on a Connection.
type Channel interface {
	// DeclareQueue creates the queue if absent; an existing queue with
	// the same settings is left untouched.
	DeclareQueue(name string) error
	// Publish sends body to the default exchange with queue as routing key.
	Publish(ctx context.Context, queue string, body []byte) error
	Close() error
}

// ConnectionError marks a failure to establish a broker connection:
// unreachable host, refused authentication or a failed handshake.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to broker %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

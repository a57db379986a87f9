// Package netx holds the client's network helpers: the connectivity oracle
// consulted before every remote attempt, and photo upload to presigned URLs.
package netx

import (
	"context"
	"net"
	"time"
)

// Transport is a coarse hint about the path to the backend.
type Transport string

const (
	TransportNone     Transport = "none"
	TransportLoopback Transport = "loopback"
	TransportLAN      Transport = "lan"
	TransportWAN      Transport = "wan"
)

// Status is the result of one connectivity check.
type Status struct {
	Connected bool
	Transport Transport
}

// Oracle answers whether the backend is reachable right now. Implementations
// must not cache and must report false when the check itself fails.
type Oracle interface {
	Check(ctx context.Context) Status
	IsConnected(ctx context.Context) bool
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context) Status

func (f OracleFunc) Check(ctx context.Context) Status { return f(ctx) }

func (f OracleFunc) IsConnected(ctx context.Context) bool { return f(ctx).Connected }

// Static returns an Oracle with a fixed answer.
func Static(connected bool) Oracle {
	t := TransportNone
	if connected {
		t = TransportLoopback
	}
	return OracleFunc(func(context.Context) Status { return Status{Connected: connected, Transport: t} })
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProbeOracle opens a TCP connection to the backend address on every check.
type ProbeOracle struct {
	addr    string
	timeout time.Duration
	dial    dialFunc
}

// NewProbeOracle returns an oracle probing addr (host:port). A zero timeout
// falls back to three seconds.
func NewProbeOracle(addr string, timeout time.Duration) *ProbeOracle {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := &net.Dialer{}
	return &ProbeOracle{addr: addr, timeout: timeout, dial: d.DialContext}
}

func (o *ProbeOracle) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	conn, err := o.dial(ctx, "tcp", o.addr)
	if err != nil {
		return Status{Connected: false, Transport: TransportNone}
	}
	defer conn.Close()

	return Status{Connected: true, Transport: classify(conn.RemoteAddr())}
}

func (o *ProbeOracle) IsConnected(ctx context.Context) bool {
	return o.Check(ctx).Connected
}

func classify(addr net.Addr) Transport {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp.IP == nil {
		return TransportWAN
	}
	switch {
	case tcp.IP.IsLoopback():
		return TransportLoopback
	case tcp.IP.IsPrivate(), tcp.IP.IsLinkLocalUnicast():
		return TransportLAN
	}
	return TransportWAN
}

// Package p4rt provides a thin wrapper around the generated p4.v1
// P4Runtime gRPC client stub: dialing, deadlines, and the handful of
// unary RPCs the switch session issues outside the stream (spec §4.4(c)).
package p4rt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	p4v1 "github.com/p4lang/p4runtime/go/p4/v1"
)

// DefaultUnaryTimeout is the deadline applied to Write/
// SetForwardingPipelineConfig/GetForwardingPipelineConfig/Capabilities
// unless a session's config sets its own; the server-streaming Read
// carries no deadline of its own (spec §5, "Timeouts").
const DefaultUnaryTimeout = 10 * time.Second

// Credentials describes the TLS material for a single switch's gRPC
// channel, or Insecure set for a plaintext connection —
// development/lab use only.
type Credentials struct {
	CAFile         string
	CertFile       string
	KeyFile        string
	ServerNameOverride string
	Insecure       bool
}

// dialOption builds the transport credentials for Dial. When CertFile/
// KeyFile are set it performs mutual TLS, presenting the client
// certificate alongside verifying the target's; with only CAFile set it
// falls back to server-auth-only TLS.
func (c Credentials) dialOption() (grpc.DialOption, error) {
	if c.Insecure {
		return grpc.WithTransportCredentials(insecure.NewCredentials()), nil
	}
	if c.CertFile == "" && c.KeyFile == "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(c.CAFile, c.ServerNameOverride)
		if err != nil {
			return nil, err
		}
		return grpc.WithTransportCredentials(tlsCreds), nil
	}

	cfg := &tls.Config{ServerName: c.ServerNameOverride}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("p4rt: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("p4rt: no certificates found in %s", c.CAFile)
		}
		cfg.RootCAs = pool
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("p4rt: load client keypair: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return grpc.WithTransportCredentials(credentials.NewTLS(cfg)), nil
}

// Client wraps a single gRPC connection to one switch's P4Runtime
// service. It owns the channel; there is no cross-session sharing
// (spec §5, "Shared resources").
type Client struct {
	conn *grpc.ClientConn
	rpc  p4v1.P4RuntimeClient
}

// Dial opens a gRPC channel to target using creds and returns a Client
// ready to issue unary RPCs or open a stream.
func Dial(ctx context.Context, target string, creds Credentials) (*Client, error) {
	opt, err := creds.dialOption()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, opt)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, rpc: p4v1.NewP4RuntimeClient(conn)}, nil
}

// Close tears down the underlying gRPC channel.
func (c *Client) Close() error { return c.conn.Close() }

// Raw exposes the generated stub for callers (the switch session) that
// need the stream or batch RPCs directly.
func (c *Client) Raw() p4v1.P4RuntimeClient { return c.rpc }

// Capabilities reports the target's supported P4Runtime API version.
func (c *Client) Capabilities(ctx context.Context) (*p4v1.CapabilitiesResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultUnaryTimeout)
	defer cancel()
	return c.rpc.Capabilities(ctx, &p4v1.CapabilitiesRequest{})
}

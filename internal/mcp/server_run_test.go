package mcp

import (
	"context"
	"net"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_Run_InvalidMode(t *testing.T) {
	env := newTestEnv(t)
	env.config.Mode = "invalid"

	if err := env.server.Run(context.Background()); err == nil {
		t.Error("expected error for unsupported mode")
	}
}

func TestServer_Run_ServerModeGracefulShutdown(t *testing.T) {
	env := newTestEnv(t)
	env.config.Mode = "server"
	env.config.Host = "127.0.0.1"
	env.config.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- env.server.Run(ctx)
	}()

	// Wait until the listener accepts connections.
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", env.config.Address(), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

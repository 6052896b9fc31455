package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"nathanbeddoewebdev/sdcomfy/internal/retry"

	"golang.org/x/crypto/ssh"
)

func TestTailCommand(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		lines  int
		follow bool
		want   string
	}{
		{"cloud-init", "/var/log/cloud-init-output.log", 50, false, "sudo -n tail -n 50 /var/log/cloud-init-output.log"},
		{"default lines", "/home/ubuntu/ComfyUI/sd-comfyui.log", 0, false, "sudo -n tail -n 100 /home/ubuntu/ComfyUI/sd-comfyui.log"},
		{"follow", "/var/log/x.log", 10, true, "sudo -n tail -n 10 -F /var/log/x.log"},
		{"quoted", "/tmp/a b.log", 5, false, "sudo -n tail -n 5 '/tmp/a b.log'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TailCommand(tt.path, tt.lines, tt.follow); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHostFromEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ec2-1-2-3-4.us-west-2.compute.amazonaws.com:8080", "ec2-1-2-3-4.us-west-2.compute.amazonaws.com", false},
		{"http://ec2-1-2-3-4.compute.amazonaws.com:8080/", "ec2-1-2-3-4.compute.amazonaws.com", false},
		{"example.com", "example.com", false},
		{"", "", true},
		{":8080", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := HostFromEndpoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	c := NewClient("example.com", "", nil)
	if got := c.Address(); got != "example.com:22" {
		t.Errorf("got %q, want example.com:22", got)
	}
	c = NewClient("127.0.0.1:2222", "", nil)
	if got := c.Address(); got != "127.0.0.1:2222" {
		t.Errorf("got %q, want 127.0.0.1:2222", got)
	}
	if c.user != DefaultUser {
		t.Errorf("expected default user %q, got %q", DefaultUser, c.user)
	}
}

func testSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}
	return signer
}

func TestRun_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewClient(addr, "ubuntu", testSigner(t))
	c.retry = retry.Policy{Attempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	if err := c.Run(context.Background(), "true", io.Discard); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	c := NewClient("192.0.2.1", "ubuntu", testSigner(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, "true", io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Package sshtest runs an in-process SSH server for tests.
//
// The server accepts public-key auth for a single generated client key and
// answers "exec" requests through a Handler, so executor and poller tests
// can exercise real SSH connections without a remote host.
package sshtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// Response is what the server does with one exec request.
type Response struct {
	Stdout   string
	ExitCode int
	// Hang keeps stdout open until the server is closed.
	Hang bool
}

// Handler maps a command to its response.
type Handler func(command string) Response

// Echo returns a handler that replies with the same stdout to every command.
func Echo(stdout string) Handler {
	return func(string) Response { return Response{Stdout: stdout} }
}

// Server is a minimal SSH server bound to 127.0.0.1.
type Server struct {
	listener  net.Listener
	config    *ssh.ServerConfig
	handler   Handler
	hostKey   ssh.PublicKey
	clientKey ed25519.PrivateKey

	mu       sync.Mutex
	commands []string

	done chan struct{}
	wg   sync.WaitGroup
}

// Start launches a server and registers its shutdown with t.Cleanup.
func Start(t testing.TB, handler Handler) *Server {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	authorized, err := ssh.NewPublicKey(clientPub)
	if err != nil {
		t.Fatalf("client public key: %v", err)
	}

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if string(key.Marshal()) == string(authorized.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{
		listener:  ln,
		config:    config,
		handler:   handler,
		hostKey:   hostSigner.PublicKey(),
		clientKey: clientPriv,
		done:      make(chan struct{}),
	}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listen IP.
func (s *Server) Host() string {
	return s.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listen port.
func (s *Server) Port() uint16 {
	return uint16(s.listener.Addr().(*net.TCPAddr).Port)
}

// HostKey returns the server's public host key.
func (s *Server) HostKey() ssh.PublicKey {
	return s.hostKey
}

// WriteClientKey writes the authorized client private key into dir and
// returns its path.
func (s *Server) WriteClientKey(t testing.TB, dir string) string {
	t.Helper()
	return writeKey(t, dir, "id_ed25519", s.clientKey)
}

// WriteStrangerKey writes a valid private key the server will reject.
func WriteStrangerKey(t testing.TB, dir string) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return writeKey(t, dir, "id_stranger", priv)
}

func writeKey(t testing.TB, dir, name string, key ed25519.PrivateKey) string {
	t.Helper()
	block, err := ssh.MarshalPrivateKey(key, "")
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

// Commands returns every command the server has been asked to run.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops accepting connections and releases hung sessions.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(nc net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(nc, s.config)
	if err != nil {
		nc.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	// Drop the connection when the server shuts down so hung sessions end.
	go func() {
		select {
		case <-s.done:
			sconn.Close()
		case <-waitConn(sconn):
		}
	}()

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(ch, chReqs)
		}()
	}
}

func waitConn(c ssh.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = c.Wait()
		close(done)
	}()
	return done
}

func (s *Server) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		resp := s.handler(payload.Command)
		if resp.Hang {
			_, _ = io.WriteString(ch, resp.Stdout)
			<-s.done
			return
		}

		_, _ = io.WriteString(ch, resp.Stdout)
		_ = ch.CloseWrite()
		status := struct{ Status uint32 }{uint32(resp.ExitCode)}
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
		go ssh.DiscardRequests(reqs)
		return
	}
}

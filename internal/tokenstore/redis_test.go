package tokenstore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyValueServer speaks just enough RESP2 for the commands the store sends.
type keyValueServer struct {
	mu     sync.Mutex
	values map[string]string
	ln     net.Listener
}

func startKeyValueServer(t *testing.T) *keyValueServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &keyValueServer{values: map[string]string{}, ln: ln}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *keyValueServer) addr() string {
	return s.ln.Addr().String()
}

func (s *keyValueServer) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *keyValueServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *keyValueServer) handle(conn net.Conn) {
	defer conn.Close() //nolint:errcheck
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		if _, err := io.WriteString(conn, s.reply(args)); err != nil {
			return
		}
	}
}

func (s *keyValueServer) reply(args []string) string {
	if len(args) == 0 {
		return "-ERR empty command\r\n"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "CLIENT":
		return "+OK\r\n"
	case "GET":
		v, ok := s.values[args[1]]
		if !ok {
			return "$-1\r\n"
		}
		return fmt.Sprintf("$%d\r\n%s\r\n", len(v), v)
	case "SET":
		s.values[args[1]] = args[2]
		return "+OK\r\n"
	case "DEL":
		removed := 0
		for _, key := range args[1:] {
			if _, ok := s.values[key]; ok {
				delete(s.values, key)
				removed++
			}
		}
		return fmt.Sprintf(":%d\r\n", removed)
	default:
		// HELLO lands here, which makes the client fall back to RESP2.
		return fmt.Sprintf("-ERR unknown command '%s'\r\n", args[0])
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return strings.Fields(line), nil
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		header, err := readLine(r)
		if err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(strings.TrimPrefix(header, "$"))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newRedisStore(t *testing.T, server *keyValueServer) *Redis {
	t.Helper()
	store := NewRedis(redis.NewClient(&redis.Options{Addr: server.addr()}), "adminToken")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, newRedisStore(t, startKeyValueServer(t)))
}

func TestRedisStoreSharedBetweenReplicas(t *testing.T) {
	server := startKeyValueServer(t)
	ctx := context.Background()
	first := newRedisStore(t, server)
	second := newRedisStore(t, server)

	require.NoError(t, first.Set(ctx, "shared"))
	stored, ok := server.value("adminToken")
	require.True(t, ok)
	assert.Equal(t, "shared", stored)

	token, ok, err := second.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shared", token)

	require.NoError(t, second.Remove(ctx))
	_, ok, err = first.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreReportsUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	store := NewRedis(redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}), "adminToken")
	defer store.Close() //nolint:errcheck

	_, _, err = store.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get adminToken")
}

package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/tcpoker/internal/protocol"
	"github.com/lox/tcpoker/internal/table"
)

type testServer struct {
	*Server
	table  *table.Table
	cancel context.CancelFunc
	done   chan error
}

func startTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	return startLoggedServer(t, opts, log.New(io.Discard))
}

func startLoggedServer(t *testing.T, opts Options, logger *log.Logger) *testServer {
	t.Helper()
	if opts.Address == "" {
		opts.Address = "127.0.0.1:0"
	}
	tbl := table.New(table.Config{Capacity: 2, Ante: 10, StartingStack: 1000}, logger)
	srv := New(opts, tbl, logger)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{Server: srv, table: tbl, cancel: cancel, done: make(chan error, 1)}
	go func() { ts.done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-ts.done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
		tbl.Close()
	})
	return ts
}

// logBuffer collects log output written from many goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testClient is a line-protocol client.
type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dial(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, scanner: protocol.NewScanner(conn)}
}

func (c *testClient) writeLine(line string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, line+"\n")
	require.NoError(c.t, err)
}

func (c *testClient) hello(name string) {
	c.t.Helper()
	frame, err := protocol.EncodeHello(name)
	require.NoError(c.t, err)
	_, err = c.conn.Write(frame)
	require.NoError(c.t, err)
}

func (c *testClient) command(parts ...string) {
	c.t.Helper()
	cmd, err := protocol.ParseCommand(parts)
	require.NoError(c.t, err)
	frame, err := protocol.EncodeCommand(cmd)
	require.NoError(c.t, err)
	_, err = c.conn.Write(frame)
	require.NoError(c.t, err)
}

// next reads one event, failing the test on timeout or EOF.
func (c *testClient) next() protocol.Event {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.True(c.t, c.scanner.Scan(), "connection ended: %v", c.scanner.Err())
	ev, err := protocol.Decode(c.scanner.Bytes())
	require.NoError(c.t, err, "frame %q", c.scanner.Text())
	return ev
}

// expect reads events until match accepts one.
func (c *testClient) expect(match func(protocol.Event) bool) protocol.Event {
	c.t.Helper()
	for {
		if ev := c.next(); match(ev) {
			return ev
		}
	}
}

func (c *testClient) expectBroadcast(substr string) {
	c.t.Helper()
	c.expect(func(ev protocol.Event) bool {
		b, ok := ev.(protocol.Broadcast)
		return ok && strings.Contains(string(b), substr)
	})
}

func (c *testClient) expectError() string {
	c.t.Helper()
	ev := c.expect(func(ev protocol.Event) bool {
		_, ok := ev.(protocol.ErrorReport)
		return ok
	})
	return string(ev.(protocol.ErrorReport))
}

func (c *testClient) expectTurn() protocol.Prompt {
	c.t.Helper()
	ev := c.expect(func(ev protocol.Event) bool {
		p, ok := ev.(protocol.Prompt)
		return ok && p.Kind == protocol.CollectBets
	})
	return ev.(protocol.Prompt)
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for c.scanner.Scan() {
	}
	var netErr net.Error
	if errors.As(c.scanner.Err(), &netErr) && netErr.Timeout() {
		c.t.Fatal("connection still open")
	}
}

func join(t *testing.T, addr net.Addr, name string) *testClient {
	t.Helper()
	c := dial(t, addr)
	c.hello(name)
	c.expect(func(ev protocol.Event) bool {
		_, ok := ev.(protocol.StackUpdate)
		return ok
	})
	return c
}

// startHand readies both clients and antes once the hand has started.
func startHand(clients ...*testClient) {
	for _, c := range clients {
		c.command("ready")
	}
	for _, c := range clients {
		c.expect(func(ev protocol.Event) bool { return ev == protocol.StartGame(true) })
		c.expect(func(ev protocol.Event) bool {
			p, ok := ev.(protocol.Prompt)
			return ok && p.Kind == protocol.CollectAnte && p.Amount == 10
		})
	}
	for _, c := range clients {
		c.command("ante", "10")
	}
}

func TestHandshakeRejectsOtherFrames(t *testing.T) {
	ts := startTestServer(t, Options{})
	c := dial(t, ts.Addr())

	c.writeLine(`{"command": ["ready"]}`)
	assert.Contains(t, c.expectError(), "username")
	c.expectClosed()
}

func TestJoinAndStatus(t *testing.T) {
	ts := startTestServer(t, Options{})
	c := dial(t, ts.Addr())
	c.writeLine("")
	c.hello("alice")

	assert.Equal(t, protocol.Broadcast("alice has joined the table."), c.next())
	assert.Equal(t, protocol.StackUpdate(1000), c.next())

	c.command("status")
	assert.Equal(t, protocol.StatusReport{"alice": false}, c.next())

	require.Eventually(t, func() bool { return ts.Sessions() == 1 }, time.Second, 5*time.Millisecond)
}

func TestDuplicateNameAndFullTable(t *testing.T) {
	ts := startTestServer(t, Options{})
	alice := join(t, ts.Addr(), "alice")

	dup := dial(t, ts.Addr())
	dup.hello("alice")
	assert.Contains(t, dup.expectError(), "already seated")
	dup.expectClosed()

	join(t, ts.Addr(), "bob")
	alice.expectBroadcast("bob has joined")

	carol := dial(t, ts.Addr())
	carol.hello("carol")
	assert.Contains(t, carol.expectError(), "table is full")
	carol.expectClosed()
}

func TestMalformedFramesKeepConnection(t *testing.T) {
	ts := startTestServer(t, Options{})
	c := join(t, ts.Addr(), "alice")

	c.writeLine("not json")
	c.expectError()
	c.writeLine("   ")
	c.writeLine(`{"command": ["dance"]}`)
	assert.Contains(t, c.expectError(), "dance")
	c.command("ante", "10")
	assert.Contains(t, c.expectError(), "ante")

	c.command("status")
	assert.Equal(t, protocol.StatusReport{"alice": false}, c.next())
}

func TestHandOverTheWire(t *testing.T) {
	ts := startTestServer(t, Options{})
	alice := join(t, ts.Addr(), "alice")
	bob := join(t, ts.Addr(), "bob")

	startHand(alice, bob)

	hole := alice.expect(func(ev protocol.Event) bool {
		_, ok := ev.(protocol.HoleCards)
		return ok
	})
	assert.Len(t, hole, 2)

	prompt := alice.expectTurn()
	assert.Equal(t, []string{"check", "bet"}, prompt.ValidActions)
	assert.Equal(t, 20, prompt.Pot)

	bob.command("check")
	assert.Contains(t, bob.expectError(), "not your turn")

	alice.command("bet", "20")
	prompt = bob.expectTurn()
	assert.Equal(t, 20, prompt.ToCall)

	bob.command("raise", "15")
	assert.Contains(t, bob.expectError(), "at least 40")

	bob.command("fold")
	alice.expectBroadcast("alice wins 40; everyone else folded.")
	assert.Equal(t, protocol.StackUpdate(1010), alice.next())
	assert.Equal(t, protocol.LobbyState, alice.next())
}

func TestDisconnectAbortsHand(t *testing.T) {
	ts := startTestServer(t, Options{})
	alice := join(t, ts.Addr(), "alice")
	bob := join(t, ts.Addr(), "bob")

	startHand(alice, bob)
	alice.expectTurn()

	bob.command("exit")
	bob.expectClosed()

	alice.expectBroadcast("bob has left the table.")
	alice.expectBroadcast("Hand aborted")
	assert.Equal(t, protocol.StackUpdate(1000), alice.next())
	assert.Equal(t, protocol.LobbyState, alice.next())

	require.Eventually(t, func() bool { return ts.Sessions() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, ts.table.Snapshot().Players, 1)
}

func TestShutdownClosesSessions(t *testing.T) {
	ts := startTestServer(t, Options{})
	c := join(t, ts.Addr(), "alice")

	ts.cancel()
	c.expectClosed()

	select {
	case err := <-ts.done:
		assert.NoError(t, err)
		ts.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 0, ts.Sessions())
}

func TestWebSocket(t *testing.T) {
	ts := startTestServer(t, Options{WSAddress: "127.0.0.1:0"})
	base := ts.WSAddr().String()

	resp, err := http.Get("http://" + base + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"username": "alice"}`)))

	read := func() protocol.Event {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		ev, err := protocol.Decode(data)
		require.NoError(t, err)
		return ev
	}
	assert.Equal(t, protocol.Broadcast("alice has joined the table."), read())
	assert.Equal(t, protocol.StackUpdate(1000), read())

	// line and websocket players share the table
	bob := join(t, ts.Addr(), "bob")
	assert.Equal(t, protocol.Broadcast("bob has joined the table."), read())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"command": ["status"]}`)))
	assert.Equal(t, protocol.StatusReport{"alice": false, "bob": false}, read())
	bob.command("status")
	bob.expect(func(ev protocol.Event) bool { _, ok := ev.(protocol.StatusReport); return ok })
}

func TestBlankFramesAreLogged(t *testing.T) {
	out := &logBuffer{}
	logger := log.NewWithOptions(out, log.Options{Level: log.DebugLevel})
	ts := startLoggedServer(t, Options{}, logger)

	c := dial(t, ts.Addr())
	c.writeLine("")
	c.hello("alice")
	c.expect(func(ev protocol.Event) bool { _, ok := ev.(protocol.StackUpdate); return ok })
	c.writeLine("  ")
	c.command("status")
	assert.Equal(t, protocol.StatusReport{"alice": false}, c.next())

	assert.Equal(t, 2, strings.Count(out.String(), "Ignored blank frame"))
}

func TestWebSocketRefusedAfterShutdown(t *testing.T) {
	ts := startTestServer(t, Options{WSAddress: "127.0.0.1:0"})

	ts.cancel()
	select {
	case err := <-ts.done:
		require.NoError(t, err)
		ts.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	rec := httptest.NewRecorder()
	ts.handleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 0, ts.Sessions())
}

package workers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/noodlevault/noodlevault/internal/client/extension"
	"github.com/noodlevault/noodlevault/internal/client/models"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/stretchr/testify/require"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeClient struct {
	id      string
	mu      sync.Mutex
	inbound [][]byte
	sent    [][]byte
}

func (c *fakeClient) ID() string { return c.id }

func (c *fakeClient) Receive() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		return nil, false
	}
	msg := c.inbound[0]
	c.inbound = c.inbound[1:]
	return msg, true
}

func (c *fakeClient) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeClient) sentMessages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

type fakeChannel struct {
	clients []extension.Client
}

func (ch *fakeChannel) Clients() []extension.Client { return ch.clients }

type fakeLookup struct {
	creds map[string]models.Credential
}

func (l *fakeLookup) Get(_ context.Context, website string) (models.Credential, error) {
	cred, ok := l.creds[website]
	if !ok {
		return models.Credential{}, common.ErrNotFound
	}
	return cred, nil
}

func TestDispatcherAnswersRequest(t *testing.T) {
	cli := &fakeClient{id: "c1", inbound: [][]byte{[]byte(`{"url":"https://www.example.com/login?next=1"}`)}}
	lookup := &fakeLookup{creds: map[string]models.Credential{
		"www.example.com": {Username: "alice", Password: "s3cret"},
	}}
	d := NewDispatcher(&fakeChannel{clients: []extension.Client{cli}}, lookup, time.Millisecond, discardLogger())

	d.cycle(context.Background())

	sent := cli.sentMessages()
	require.Len(t, sent, 2)
	require.JSONEq(t, `{"username":"alice","password":"s3cret"}`, string(sent[0]))
	require.Equal(t, extension.Terminator, sent[1])
}

func TestDispatcherUnknownDomain(t *testing.T) {
	cli := &fakeClient{id: "c1", inbound: [][]byte{[]byte(`{"url":"https://nowhere.test/"}`)}}
	d := NewDispatcher(&fakeChannel{clients: []extension.Client{cli}}, &fakeLookup{}, time.Millisecond, discardLogger())

	d.cycle(context.Background())

	sent := cli.sentMessages()
	require.Len(t, sent, 1)
	require.Equal(t, extension.Terminator, sent[0])
}

func TestDispatcherMalformedRequestDoesNotBlockOthers(t *testing.T) {
	bad := &fakeClient{id: "bad", inbound: [][]byte{[]byte(`{{{`)}}
	good := &fakeClient{id: "good", inbound: [][]byte{[]byte(`{"url":"site.com"}`)}}
	lookup := &fakeLookup{creds: map[string]models.Credential{
		"site.com": {Username: "u", Password: "p"},
	}}
	d := NewDispatcher(&fakeChannel{clients: []extension.Client{bad, good}}, lookup, time.Millisecond, discardLogger())

	d.cycle(context.Background())

	badSent := bad.sentMessages()
	require.Len(t, badSent, 1)
	require.Equal(t, extension.Terminator, badSent[0])

	goodSent := good.sentMessages()
	require.Len(t, goodSent, 2)
	require.JSONEq(t, `{"username":"u","password":"p"}`, string(goodSent[0]))
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	d := NewDispatcher(&fakeChannel{}, &fakeLookup{}, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherIdleCycle(t *testing.T) {
	clients := make([]extension.Client, 3)
	for i := range clients {
		clients[i] = &fakeClient{id: fmt.Sprintf("c%d", i)}
	}
	d := NewDispatcher(&fakeChannel{clients: clients}, &fakeLookup{}, time.Millisecond, discardLogger())

	d.cycle(context.Background())

	for _, cli := range clients {
		require.Empty(t, cli.(*fakeClient).sentMessages())
	}
}

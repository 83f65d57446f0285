package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirebridge/internal/store"
)

const (
	testNetwork        = "quakenet"
	testMasterPassword = "master-pass"
)

var (
	generalChannel  = Channel{Server: "main", Name: "general"}
	offtopicChannel = Channel{Server: "main", Name: "offtopic"}
	foreignChannel  = Channel{Server: "main", Name: "foreign"}

	testMappings = []ChannelMapping{
		{External: Channel{Server: testNetwork, Name: "bridge"}, Internal: generalChannel},
		{External: Channel{Server: testNetwork, Name: "bridge-ot"}, Internal: offtopicChannel},
		{External: Channel{Server: "libera", Name: "elsewhere"}, Internal: foreignChannel},
	}
)

type fakeAccount struct {
	password string
	admin    bool
	blocked  bool
}

// fakeAccounts is an in-memory AccountStore.
type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	logins   map[string]string
	err      error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		accounts: make(map[string]fakeAccount),
		logins:   make(map[string]string),
	}
}

func (f *fakeAccounts) add(username, password string, admin, blocked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[username] = fakeAccount{password: password, admin: admin, blocked: blocked}
}

func (f *fakeAccounts) LookupAccount(_ context.Context, username, password string) (*store.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	acc, ok := f.accounts[username]
	if !ok || acc.password != password {
		return nil, nil
	}
	return &store.Account{Username: username, IsAdmin: acc.admin, IsBlocked: acc.blocked}, nil
}

func (f *fakeAccounts) AccountExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.accounts[username]
	return ok, nil
}

func (f *fakeAccounts) InsertAccount(_ context.Context, username, secret, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.accounts[username]; ok {
		return store.ErrUsernameTaken
	}
	f.accounts[username] = fakeAccount{password: secret}
	return nil
}

func (f *fakeAccounts) RecordLogin(_ context.Context, username, addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins[username] = addr
	return nil
}

type sentLine struct {
	server  string
	channel string
	text    string
}

// fakeNetwork records what the bridge sends to the external network.
type fakeNetwork struct {
	mu   sync.Mutex
	sent []sentLine
	fail bool
	// onSend runs before a line is recorded.
	onSend func()
}

func (n *fakeNetwork) Network() string { return testNetwork }

func (n *fakeNetwork) SendToChannel(server, channel, text string) bool {
	if n.onSend != nil {
		n.onSend()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.sent = append(n.sent, sentLine{server: server, channel: channel, text: text})
	return true
}

func (n *fakeNetwork) lines() []sentLine {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentLine, len(n.sent))
	copy(out, n.sent)
	return out
}

type testBridge struct {
	*Bridge
	accounts *fakeAccounts
	network  *fakeNetwork
	clock    *clock.Mock
}

func newTestBridge(t *testing.T, mutate ...func(*Options)) *testBridge {
	t.Helper()

	accounts := newFakeAccounts()
	network := &fakeNetwork{}
	clk := clock.NewMock()
	clk.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	opts := Options{
		BacklogSize:      10,
		Mappings:         testMappings,
		MasterPassword:   testMasterPassword,
		AccountsRequired: true,
		Clock:            clk,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	b, err := New(accounts, network, opts)
	require.NoError(t, err)

	return &testBridge{Bridge: b, accounts: accounts, network: network, clock: clk}
}

var connSeq struct {
	sync.Mutex
	n int
}

func (tb *testBridge) connect(t *testing.T) *Session {
	t.Helper()

	connSeq.Lock()
	connSeq.n++
	id := fmt.Sprintf("conn-%d", connSeq.n)
	connSeq.Unlock()

	s, err := tb.Connect(id, "127.0.0.1")
	require.NoError(t, err)
	return s
}

// login connects a session and logs it in to the general channel with the
// master password, draining the login events.
func (tb *testBridge) login(t *testing.T, username string) *Session {
	t.Helper()

	s := tb.connect(t)
	tb.Login(context.Background(), s, AuthRequest{
		Username: username,
		Password: testMasterPassword,
		Channel:  generalChannel.Name,
		Server:   generalChannel.Server,
	})
	ev := mustEvent(t, s.Events, EventAuthResponse)
	require.True(t, ev.Auth.Success, "login failed: %s", ev.Auth.Message)
	mustEvent(t, s.Events, EventBacklog)
	return s
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// pending returns the events queued on ch without waiting.
func pending(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func pendingOfKind(ch <-chan *Event, kind EventKind) []*Event {
	var out []*Event
	for _, ev := range pending(ch) {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

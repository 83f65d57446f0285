package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirebridge/internal/auth"
	"github.com/vovakirdan/wirebridge/internal/config"
	"github.com/vovakirdan/wirebridge/internal/core"
	"github.com/vovakirdan/wirebridge/internal/irc"
	"github.com/vovakirdan/wirebridge/internal/metrics"
	"github.com/vovakirdan/wirebridge/internal/proto"
	"github.com/vovakirdan/wirebridge/internal/store/sqlite"
)

const (
	testAdminToken     = "admin-secret"
	testMasterPassword = "master"
)

type testEnv struct {
	ts       *httptest.Server
	handler  stdhttp.Handler
	bridge   *core.Bridge
	accounts *auth.Accounts
	store    *sqlite.SQLiteStore
	network  *irc.Mock
	jwt      *auth.JWTConfig
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.AdminToken = testAdminToken
	cfg.MasterPassword = testMasterPassword
	cfg.AccountsRequired = true
	cfg.JWTSecret = "jwt-secret"
	cfg.AdminRateLimitRPS = 1000
	cfg.AdminRateLimitBurst = 1000
	for _, fn := range mutate {
		fn(&cfg)
	}

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	}

	disabledLogger := zerolog.Nop()
	accounts := auth.NewAccounts(st)
	network := irc.NewMock("quakenet", []string{"bridge"}, nil, nil, nil)
	reg := prometheus.NewRegistry()

	bridge, err := core.New(accounts, network, core.Options{
		BacklogSize: cfg.BacklogSize,
		Mappings: []core.ChannelMapping{{
			External: core.Channel{Server: "quakenet", Name: "bridge"},
			Internal: core.Channel{Server: "main", Name: "general"},
		}},
		MasterPassword:   cfg.MasterPassword,
		AccountsRequired: cfg.AccountsRequired,
		AdminTokens: func(username string) (string, error) {
			return auth.GenerateToken(jwtCfg, username, true)
		},
		Metrics: metrics.New(reg),
		Logger:  &disabledLogger,
	})
	require.NoError(t, err)

	server := NewServer(bridge, &cfg, jwtCfg, reg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:       ts,
		handler:  server.Handler,
		bridge:   bridge,
		accounts: accounts,
		store:    st,
		network:  network,
		jwt:      jwtCfg,
	}
}

func (e *testEnv) dial(ctx context.Context, t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// do sends an admin or public HTTP request straight to the handler.
func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}))
}

// readEvent reads frames until one matches event; "error" matches error frames.
func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) outbound {
	t.Helper()

	for {
		var out outbound
		require.NoError(t, wsjson.Read(ctx, conn, &out))
		if out.Event == event || (event == proto.OutboundTypeError && out.Type == proto.OutboundTypeError) {
			return out
		}
	}
}

func authenticate(ctx context.Context, t *testing.T, conn *websocket.Conn, username, password string) proto.AuthResponse {
	t.Helper()

	send(ctx, t, conn, proto.InboundTypeAuth, proto.AuthData{
		Username: username,
		Password: password,
		Channel:  "general",
		Server:   "main",
	})
	var res proto.AuthResponse
	require.NoError(t, json.Unmarshal(readEvent(ctx, t, conn, proto.EventAuthResponse).Data, &res))
	return res
}

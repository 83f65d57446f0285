package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirebridge/internal/core"
	"github.com/vovakirdan/wirebridge/internal/proto"
)

func TestInboundToCommand(t *testing.T) {
	cmd, perr := inboundToCommand(proto.Inbound{
		Type: proto.InboundTypeAuth,
		Data: json.RawMessage(`{"username":"alice","password":"pw","channel":"general","server":"main"}`),
	})
	require.Nil(t, perr)
	assert.Equal(t, core.CommandAuth, cmd.Kind)
	assert.Equal(t, core.AuthRequest{Username: "alice", Password: "pw", Channel: "general", Server: "main"}, cmd.Auth)

	cmd, perr = inboundToCommand(proto.Inbound{
		Type: proto.InboundTypeMessage,
		Data: json.RawMessage(`{"from":"alice","token":"t","message":"hi"}`),
	})
	require.Nil(t, perr)
	assert.Equal(t, core.MessageRequest{From: "alice", Token: "t", Text: "hi"}, cmd.Message)

	cmd, perr = inboundToCommand(proto.Inbound{Type: proto.InboundTypeRegister})
	require.Nil(t, perr, "missing data decodes as empty fields")
	assert.Equal(t, core.CommandRegister, cmd.Kind)

	_, perr = inboundToCommand(proto.Inbound{Type: proto.InboundTypeRegister, Data: json.RawMessage(`"nope"`)})
	require.NotNil(t, perr)
	assert.Equal(t, core.ErrCodeBadRequest, perr.Code)

	_, perr = inboundToCommand(proto.Inbound{Type: "hello"})
	require.NotNil(t, perr)
	assert.Equal(t, "invalid_message", perr.Code)
}

func TestOutboundFromEvent(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	out := outboundFromEvent(&core.Event{Kind: core.EventMessage, Message: core.Message{
		ID: 7, From: "bob", Text: "hi", Channel: "general", Server: "main", CreatedAt: created,
	}})
	assert.Equal(t, proto.OutboundTypeEvent, out.Type)
	assert.Equal(t, proto.EventMessage, out.Event)
	assert.Equal(t, proto.ChatMessage{
		ID: 7, From: "bob", Message: "hi", Channel: "general", Server: "main",
		Date: created.Format(http.TimeFormat),
	}, out.Data)

	out = outboundFromEvent(&core.Event{Kind: core.EventLogout, User: "bob", Reason: "logged out"})
	assert.Equal(t, proto.Logout{User: "bob", Message: "logged out"}, out.Data)

	out = outboundFromEvent(&core.Event{Kind: core.EventError, Error: &core.CoreError{Code: core.ErrCodeRateLimited, Message: "slow down"}})
	assert.Equal(t, proto.OutboundTypeError, out.Type)
	assert.Equal(t, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "slow down"}, out.Error)
}

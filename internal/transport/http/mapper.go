package http

import (
	"encoding/json"
	"net/http"

	"github.com/vovakirdan/wirebridge/internal/core"
	"github.com/vovakirdan/wirebridge/internal/proto"
)

// inboundToCommand decodes a client envelope. Malformed payloads and unknown
// types yield a protocol error instead of a command.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeRegister:
		var reg proto.RegisterData
		if err := decodeData(inbound.Data, &reg); err != nil {
			return nil, badPayload(inbound.Type)
		}
		return &core.Command{
			Kind: core.CommandRegister,
			Register: core.RegisterRequest{
				Username: reg.Username,
				Password: reg.Password,
				Token:    reg.Token,
			},
		}, nil
	case proto.InboundTypeAuth:
		var auth proto.AuthData
		if err := decodeData(inbound.Data, &auth); err != nil {
			return nil, badPayload(inbound.Type)
		}
		return &core.Command{
			Kind: core.CommandAuth,
			Auth: core.AuthRequest{
				Username: auth.Username,
				Password: auth.Password,
				Channel:  auth.Channel,
				Server:   auth.Server,
				Token:    auth.Token,
			},
		}, nil
	case proto.InboundTypeMessage:
		var msg proto.MessageData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return nil, badPayload(inbound.Type)
		}
		return &core.Command{
			Kind: core.CommandMessage,
			Message: core.MessageRequest{
				From:  msg.From,
				Token: msg.Token,
				Text:  msg.Message,
			},
		}, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(data, v)
}

func badPayload(kind string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed " + kind + " payload"}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  chatMessage(event.Message),
		}
	case core.EventUserJoin:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserJoin,
			Data:  proto.UserJoin{User: event.User},
		}
	case core.EventAuthResponse:
		res := proto.AuthResponse{}
		if event.Auth != nil {
			res = proto.AuthResponse{
				Username:   event.Auth.Username,
				Admin:      event.Auth.Admin,
				Token:      event.Auth.Token,
				AdminToken: event.Auth.AdminToken,
				Success:    event.Auth.Success,
				Message:    event.Auth.Message,
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventAuthResponse,
			Data:  res,
		}
	case core.EventLogout:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventLogout,
			Data:  proto.Logout{User: event.User, Message: event.Reason},
		}
	case core.EventBacklog:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventBacklog,
			Data:  proto.Backlog{Messages: chatMessages(event.Messages)},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func chatMessage(msg core.Message) proto.ChatMessage {
	return proto.ChatMessage{
		ID:      msg.ID,
		From:    msg.From,
		Message: msg.Text,
		Channel: msg.Channel,
		Server:  msg.Server,
		Date:    msg.CreatedAt.UTC().Format(http.TimeFormat),
	}
}

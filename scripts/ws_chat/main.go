package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirebridge/internal/proto"
)

// session holds the login state learned from authResponse events.
type session struct {
	mu       sync.Mutex
	username string
	token    string
}

func (s *session) set(username, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.token = username, token
}

func (s *session) get() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username, s.token
}

type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	password := flag.String("password", "", "account or master password")
	channel := flag.String("channel", "general", "internal channel to join")
	server := flag.String("server", "main", "internal server of the channel")
	register := flag.Bool("register", false, "register the account before logging in")
	signUpToken := flag.String("signup-token", "", "sign up token, if the bridge requires one")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload})
	}

	if *register {
		if err := send(proto.InboundTypeRegister, proto.RegisterData{Username: *user, Password: *password, Token: *signUpToken}); err != nil {
			return err
		}
	}
	if err := send(proto.InboundTypeAuth, proto.AuthData{Username: *user, Password: *password, Channel: *channel, Server: *server}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in %s/%s\n", *addr, *user, *server, *channel)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	sess := &session{}
	go func() {
		defer cancel()
		readLoop(ctx, conn, sess)
	}()

	writeLoop(ctx, sess, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, sess *session) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			fmt.Printf("error (%s): %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventAuthResponse:
			var evt proto.AuthResponse
			if !decode(out.Data, &evt) {
				continue
			}
			if evt.Success && evt.Token != "" {
				sess.set(evt.Username, evt.Token)
			}
			fmt.Printf("* %s\n", evt.Message)
		case proto.EventMessage:
			var evt proto.ChatMessage
			if decode(out.Data, &evt) {
				printMessage(evt)
			}
		case proto.EventBacklog:
			var evt proto.Backlog
			if !decode(out.Data, &evt) {
				continue
			}
			for _, msg := range evt.Messages {
				printMessage(msg)
			}
		case proto.EventUserJoin:
			var evt proto.UserJoin
			if decode(out.Data, &evt) {
				fmt.Printf("* %s joined\n", evt.User)
			}
		case proto.EventLogout:
			var evt proto.Logout
			if decode(out.Data, &evt) {
				sess.set("", "")
				fmt.Printf("* logged out: %s\n", evt.Message)
			}
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
		}
	}
}

func decode(data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("unmarshal event: %v", err)
		return false
	}
	return true
}

func printMessage(msg proto.ChatMessage) {
	fmt.Printf("[%s/%s] <%s> %s\n", msg.Server, msg.Channel, msg.From, msg.Message)
}

func writeLoop(ctx context.Context, sess *session, send func(string, any) error) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			username, token := sess.get()
			if token == "" {
				fmt.Println("* not logged in")
				continue
			}
			if err := send(proto.InboundTypeMessage, proto.MessageData{From: username, Token: token, Message: text}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

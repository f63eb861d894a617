package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"group-chat/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL      string        `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:3000/ws"`
	Name           string        `envconfig:"CHAT_NAME"`
	RequestTimeout time.Duration `envconfig:"CHAT_REQUEST_TIMEOUT" default:"5s"`
	Colours        bool          `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// client couples the websocket connection with request/response
// correlation and the little bit of state a chat terminal needs.
type client struct {
	conn    *websocket.Conn
	ui      *ui
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan protocol.Envelope

	username     string
	currentGroup string
}

func run() (int, error) {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer conn.Close()

	c := &client{
		conn:    conn,
		ui:      newUI(config.Colours),
		timeout: config.RequestTimeout,
		pending: make(map[string]chan protocol.Envelope),
	}

	go c.readLoop(stop)

	// Handshake: server date and the command vocabulary.
	var motd protocol.Handshake
	if err := c.request(protocol.EventMessageOfTheDay, nil, &motd); err != nil {
		return exitRuntime, fmt.Errorf("handshake failed: %w", err)
	}
	c.ui.welcome(motd)

	if err := c.register(ctx, config.Name); err != nil {
		return exitRuntime, err
	}
	c.send(protocol.EventShowGroups, nil)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := c.handleLine(line); err != nil {
				c.ui.errorf("%v", err)
			}
		}
	}
}

// register claims a username, prompting until the server accepts one.
func (c *client) register(ctx context.Context, name string) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if name == "" {
			c.ui.promptf("choose a username: ")
			if !scanner.Scan() {
				return fmt.Errorf("no username given")
			}
			name = strings.TrimSpace(scanner.Text())
			if name == "" {
				continue
			}
		}
		var ack protocol.Ack
		if err := c.request(protocol.EventNewUser, protocol.RegisterRequest{Name: name}, &ack); err != nil {
			return err
		}
		if ack.OK {
			c.username = name
			c.ui.infof("welcome, %s", name)
			return nil
		}
		c.ui.errorf("name rejected: %s", ack.Error)
		name = ""
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// request sends an envelope with a correlation id and decodes the ack.
func (c *client) request(event string, payload, out any) error {
	id := uuid.NewString()
	env, err := protocol.NewRequest(id, event, payload)
	if err != nil {
		return err
	}

	ch := make(chan protocol.Envelope, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.conn.WriteJSON(env); err != nil {
		return err
	}
	select {
	case resp := <-ch:
		return resp.Decode(out)
	case <-time.After(c.timeout):
		return fmt.Errorf("%q timed out", event)
	}
}

// send fires an event without waiting for a response.
func (c *client) send(event string, payload any) {
	env, err := protocol.NewPush(event, payload)
	if err != nil {
		c.ui.errorf("%v", err)
		return
	}
	if err := c.conn.WriteJSON(env); err != nil {
		c.ui.errorf("send failed: %v", err)
	}
}

// readLoop dispatches server frames: acks to their waiting requests,
// pushes to the renderer.
func (c *client) readLoop(stop context.CancelFunc) {
	defer stop()
	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			c.ui.errorf("connection lost: %v", err)
			return
		}
		if env.ID != "" {
			c.mu.Lock()
			ch, ok := c.pending[env.ID]
			c.mu.Unlock()
			if ok {
				ch <- env
			}
			continue
		}
		c.renderPush(env)
	}
}

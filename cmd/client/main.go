// Command client is a line-oriented terminal client for the messenger. It
// registers and logs in over HTTP, opens the authenticated WebSocket, and
// relays private messages typed as "<recipient> <text>".
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string        `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	Timeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

type client struct {
	cfg   Config
	http  *http.Client
	token string
	conn  *websocket.Conn

	// outMu serializes prompt output with frames printed by the reader
	// goroutine.
	outMu sync.Mutex
	out   *bufio.Writer
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("messenger_client", &cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	c := &client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		out:  bufio.NewWriter(os.Stdout),
	}
	defer c.disconnect()

	c.printf("Connected to %s. Commands: /register <user> <pass>, /login <user> <pass>, /connect, /users, /online, /quit", cfg.ServerURL)
	c.printf("Once connected, send with: <recipient> <message>")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return exitOK, nil
		}
		if err := c.dispatch(line); err != nil {
			c.printf("error: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

func (c *client) dispatch(line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/register":
		if len(fields) != 3 {
			return fmt.Errorf("usage: /register <user> <pass>")
		}
		return c.register(fields[1], fields[2])
	case "/login":
		if len(fields) != 3 {
			return fmt.Errorf("usage: /login <user> <pass>")
		}
		return c.login(fields[1], fields[2])
	case "/connect":
		return c.connect()
	case "/users":
		return c.listUsers("/users/")
	case "/online":
		return c.listUsers("/users/online/")
	default:
		return c.send(line)
	}
}

func (c *client) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
	_ = c.out.Flush()
}

func (c *client) postJSON(path string, body any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.http.Post(c.cfg.ServerURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, nil, err
	}
	return resp, buf.Bytes(), nil
}

func (c *client) register(username, password string) error {
	resp, body, err := c.postJSON("/register/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registration failed: %s", strings.TrimSpace(string(body)))
	}
	c.printf("registered %q, now /login", username)
	return nil
}

func (c *client) login(username, password string) error {
	resp, body, err := c.postJSON("/login/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", strings.TrimSpace(string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return err
	}
	c.token = parsed.AccessToken
	c.printf("logged in as %q, now /connect", username)
	return nil
}

func (c *client) listUsers(path string) error {
	resp, err := c.http.Get(c.cfg.ServerURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var parsed struct {
		Users []string `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return err
	}
	c.printf("users: %s", strings.Join(parsed.Users, ", "))
	return nil
}

// connect opens the WebSocket with the login token and starts printing
// incoming frames until the server closes the connection.
func (c *client) connect() error {
	if c.token == "" {
		return fmt.Errorf("not logged in")
	}
	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	wsURL, err := url.Parse(c.cfg.ServerURL)
	if err != nil {
		return err
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"
	wsURL.RawQuery = url.Values{"token": {c.token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	c.conn = conn

	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if closeErr, ok := err.(*websocket.CloseError); ok && closeErr.Text != "" {
					c.printf("disconnected: %s", closeErr.Text)
				} else {
					c.printf("disconnected")
				}
				return
			}
			c.printf("%s", frame)
		}
	}()

	c.printf("connected")
	return nil
}

// send parses "<recipient> <message>" and ships it as a JSON envelope.
func (c *client) send(line string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected; use /connect first")
	}

	recipient, msg, found := strings.Cut(line, " ")
	if !found || strings.TrimSpace(msg) == "" {
		return fmt.Errorf("usage: <recipient> <message>")
	}

	return c.conn.WriteJSON(map[string]string{"to": recipient, "msg": msg})
}

func (c *client) disconnect() {
	if c.conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = c.conn.Close()
	c.conn = nil
}

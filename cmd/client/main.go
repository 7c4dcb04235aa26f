package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tickstream/tickstream/pkg/protocol"
)

// client holds the terminal client's view of the server connection.
type client struct {
	conn *websocket.Conn

	mu          sync.Mutex
	clientID    string
	currentTime string
}

func main() {
	url := os.Getenv("SERVER_URL")
	if url == "" {
		url = "ws://localhost:8765/ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", url, err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn}

	lost := make(chan struct{})
	go c.readLoop(lost)

	fmt.Printf("connected to %s\n", url)
	fmt.Println(`type "help" for the command list`)

	c.commandLoop(lost)
}

// readLoop prints asynchronous server pushes until the connection drops.
func (c *client) readLoop(lost chan<- struct{}) {
	defer close(lost)
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleFrame(payload)
	}
}

func (c *client) handleFrame(payload []byte) {
	var frame struct {
		Type     string               `json:"type"`
		Message  string               `json:"message"`
		ClientID string               `json:"client_id"`
		Time     string               `json:"time"`
		N        int                  `json:"n"`
		Result   int64                `json:"result"`
		Username string               `json:"username"`
		Users    []protocol.UserEntry `json:"users"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil {
		fmt.Printf("\runreadable frame from server: %v\n> ", err)
		return
	}

	switch frame.Type {
	case protocol.TypeWelcome:
		c.mu.Lock()
		c.clientID = frame.ClientID
		c.mu.Unlock()
		fmt.Printf("\r%s\n> ", frame.Message)
	case protocol.TypeTimeUpdate:
		// Tracked silently; shown on demand via the "time" command.
		c.mu.Lock()
		c.currentTime = frame.Time
		c.mu.Unlock()
	case protocol.TypeFibonacciResult:
		fmt.Printf("\rfibonacci(%d) = %d\n> ", frame.N, frame.Result)
	case protocol.TypeUsernameUpdated:
		fmt.Printf("\rusername updated to %s\n> ", frame.Username)
	case protocol.TypeUsersList:
		fmt.Printf("\ronline users (%d):\n", len(frame.Users))
		for _, u := range frame.Users {
			fmt.Printf("  %-20s online for %s\n", u.Username, u.OnlineTime)
		}
		fmt.Print("> ")
	case protocol.TypeError:
		fmt.Printf("\r[server error] %s\n> ", frame.Message)
	}
}

func (c *client) commandLoop(lost <-chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		select {
		case <-lost:
			fmt.Println("[connection lost]")
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "help":
			fmt.Println("commands:")
			fmt.Println("  fib N      request the N-th Fibonacci number")
			fmt.Println("  name NAME  change your username")
			fmt.Println("  users      list online users")
			fmt.Println("  time       show the last server clock value")
			fmt.Println("  id         show your client id")
			fmt.Println("  quit       disconnect and exit")
		case "fib":
			if len(fields) != 2 {
				fmt.Println("usage: fib N")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("N must be an integer")
				continue
			}
			c.sendJSON(map[string]any{"type": protocol.TypeFibonacci, "n": n})
		case "name":
			if len(fields) < 2 {
				fmt.Println("usage: name NAME")
				continue
			}
			name := strings.Join(fields[1:], " ")
			c.sendJSON(map[string]any{"type": protocol.TypeUpdateUsername, "username": name})
		case "users":
			c.sendJSON(map[string]any{"type": protocol.TypeListUsers})
		case "time":
			c.mu.Lock()
			t := c.currentTime
			c.mu.Unlock()
			if t == "" {
				fmt.Println("no clock update received yet")
			} else {
				fmt.Printf("server time: %s\n", t)
			}
		case "id":
			c.mu.Lock()
			id := c.clientID
			c.mu.Unlock()
			fmt.Printf("client id: %s\n", id)
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q, type \"help\"\n", fields[0])
		}
	}
}

func (c *client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Printf("failed to encode request: %v\n", err)
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		fmt.Printf("[connection lost] %v\n", err)
		os.Exit(1)
	}
}

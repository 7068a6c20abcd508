// Command wsprobe logs in and prints the caller's live activity stream.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

type loginResponse struct {
	Token string `json:"access_token"`
	User  struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type ticketResponse struct {
	Ticket string `json:"ticket"`
}

func main() {
	base := flag.String("url", "http://localhost:8080", "API base URL")
	email := flag.String("email", "tomas.rivas@rau.edu.ar", "Login email")
	password := flag.String("password", "demo12345", "Login password")
	flag.Parse()

	if err := run(strings.TrimRight(*base, "/"), *email, *password); err != nil {
		log.Fatal(err)
	}
}

func run(base, email, password string) error {
	var login loginResponse
	code, body, errs := fiber.Post(base+"/api/auth/login").
		JSON(fiber.Map{"email": email, "password": password}).
		Struct(&login)
	if len(errs) > 0 {
		return fmt.Errorf("login: %w", errors.Join(errs...))
	}
	if code != http.StatusOK {
		return fmt.Errorf("login: HTTP %d: %s", code, body)
	}
	log.Printf("logged in as %s (id %d)", login.User.Username, login.User.ID)

	query, err := streamQuery(base, login.Token)
	if err != nil {
		return err
	}

	wsURL, err := url.Parse(base + "/api/ws")
	if err != nil {
		return err
	}
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL.Redacted(), err)
	}
	defer func() { _ = conn.Close() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Println(string(msg))
	}
}

// streamQuery prefers a single-use ticket and falls back to the bearer token
// when the server runs without Redis.
func streamQuery(base, token string) (url.Values, error) {
	var ticket ticketResponse
	code, body, errs := fiber.Post(base+"/api/ws/ticket").
		Set(fiber.HeaderAuthorization, "Bearer "+token).
		Struct(&ticket)
	if len(errs) > 0 {
		return nil, fmt.Errorf("ticket: %w", errors.Join(errs...))
	}
	switch code {
	case http.StatusOK:
		return url.Values{"ticket": {ticket.Ticket}}, nil
	case http.StatusServiceUnavailable:
		log.Println("tickets unavailable, connecting with token")
		return url.Values{"token": {token}}, nil
	default:
		return nil, fmt.Errorf("ticket: HTTP %d: %s", code, body)
	}
}

package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"rau/internal/models"

	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueWSTicket(t *testing.T) {
	t.Run("requires redis", func(t *testing.T) {
		env := newTestEnv(t, false)
		token, _ := env.signup(t, "a@x.com", "")
		resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, token, nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("requires auth", func(t *testing.T) {
		env := newTestEnv(t, true)
		resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, "", nil)
		assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})

	t.Run("issues a single-use ticket", func(t *testing.T) {
		env := newTestEnv(t, true)
		token, _ := env.signup(t, "a@x.com", "")

		var body struct {
			Ticket    string `json:"ticket"`
			ExpiresIn int    `json:"expires_in"`
		}
		resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, token, &body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, body.Ticket)
		assert.Equal(t, 30, body.ExpiresIn)

		// A plain GET passes authentication and then asks for the upgrade.
		resp = env.do(t, http.MethodGet, "/api/ws?ticket="+body.Ticket, nil, "", nil)
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

		// The ticket is consumed on first use.
		resp = env.do(t, http.MethodGet, "/api/ws?ticket="+body.Ticket, nil, "", nil)
		assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})
}

func TestWSAuth(t *testing.T) {
	t.Run("query token is refused when tickets are available", func(t *testing.T) {
		env := newTestEnv(t, true)
		token, _ := env.signup(t, "a@x.com", "")
		resp := env.do(t, http.MethodGet, "/api/ws?token="+url.QueryEscape(token), nil, "", nil)
		assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})

	t.Run("query token is accepted without redis", func(t *testing.T) {
		env := newTestEnv(t, false)
		token, _ := env.signup(t, "a@x.com", "")
		resp := env.do(t, http.MethodGet, "/api/ws?token="+url.QueryEscape(token), nil, "", nil)
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

		resp = env.do(t, http.MethodGet, "/api/ws?token=garbage", nil, "", nil)
		assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})
}

// listen serves the app on a loopback port for tests that need a real socket.
func listen(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func readEvent(t *testing.T, conn *gorillaws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]any
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestActivityStream_DeliversVoteToAuthor(t *testing.T) {
	env := newTestEnv(t, false)
	authorToken, author := env.signup(t, "author@x.com", "")
	voterToken, _ := env.signup(t, "voter@x.com", "")
	community := env.createCommunity(t, authorToken, "Tiempo real")
	post := env.createPost(t, authorToken, community.ID, "votame")

	addr := listen(t, env.app)
	wsURL := "ws://" + addr + "/api/ws?token=" + url.QueryEscape(authorToken)
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	hello := readEvent(t, conn)
	assert.Equal(t, "connected", hello["type"])
	require.Eventually(t, func() bool { return env.srv.hub.IsOnline(author.ID) }, time.Second, 10*time.Millisecond)

	resp := env.do(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/vote", fiber.Map{"value": 1}, voterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	event := readEvent(t, conn)
	assert.Equal(t, "post_voted", event["type"])
	payload, ok := event["payload"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, post.ID, payload["post_id"])
	assert.EqualValues(t, 1, payload["value"])
	assert.EqualValues(t, 1, payload["upvotes"])

	// The author voting on their own post produces no event.
	resp = env.do(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/vote", fiber.Map{"value": -1}, authorToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var secret = []byte("test-secret")

func signed(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWsRejectsBadTokens(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	srv := newServer(t, hub)

	for name, tc := range map[string]struct {
		query  string
		status int
	}{
		"missing token": {"", http.StatusUnauthorized},
		"garbage token": {"?token=abc", http.StatusUnauthorized},
		"wrong role":    {"?token=" + signed(t, "guest"), http.StatusForbidden},
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/ws" + tc.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestPublishReachesConnectedClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	srv := newServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + signed(t, "staff")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: EventAppointmentCreated, Date: "2024-06-10"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventAppointmentCreated, ev.Type)
	assert.Equal(t, "2024-06-10", ev.Date)
}

func TestFeedFiltersByDay(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	srv := newServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?days=2024-06-11&token=" + signed(t, "admin")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: EventAppointmentCreated, Date: "2024-06-10"})
	hub.Publish(Event{Type: EventAppointmentDeleted, Date: "2024-06-11"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventAppointmentDeleted, ev.Type)
	assert.Equal(t, "2024-06-11", ev.Date)
}

func TestParseDays(t *testing.T) {
	assert.Empty(t, parseDays(""))
	days := parseDays("2024-06-10, nope ,2024-06-12")
	assert.Len(t, days, 2)
	assert.Contains(t, days, "2024-06-10")
	assert.Contains(t, days, "2024-06-12")
}

func TestAuthorize(t *testing.T) {
	role, err := authorize(signed(t, "staff"), secret)
	require.NoError(t, err)
	assert.Equal(t, "staff", role)

	_, err = authorize(signed(t, "staff"), []byte("other"))
	assert.ErrorIs(t, err, errBadToken)
}

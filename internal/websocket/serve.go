package websocket

import (
	"errors"
	"net/http"

	"officina/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth is carried by the token, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var (
	errNoToken   = errors.New("missing token")
	errBadToken  = errors.New("invalid token")
	errForbidden = errors.New("role not allowed on calendar feed")
)

// authorize validates a bearer token passed in the query string and returns
// the caller's role. Only back-office roles may watch the calendar.
func authorize(raw string, secret []byte) (string, error) {
	if raw == "" {
		return "", errNoToken
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errBadToken
	}
	role, _ := claims["role"].(string)
	if role != model.RoleAdmin && role != model.RoleStaff {
		return role, errForbidden
	}
	return role, nil
}

// ServeWs upgrades an authorized request into a calendar feed subscription.
// Query parameters: token (required) and days, an optional comma separated
// list of YYYY-MM-DD days to receive events for.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	role, err := authorize(c.Query("token"), secret)
	switch {
	case errors.Is(err, errForbidden):
		hub.log.Info("feed rejected", zap.String("role", role))
		c.AbortWithStatus(http.StatusForbidden)
		return
	case err != nil:
		hub.log.Info("feed rejected", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	s := &subscriber{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		days: parseDays(c.Query("days")),
	}
	hub.join <- s

	go s.writeLoop()
	go s.readLoop()
}

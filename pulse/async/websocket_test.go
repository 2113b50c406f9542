package async

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWebSocketControlChannel(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	registry := NewHandlerRegistry()
	registry.Register(&countingHandler{name: "remove"})

	var ws *WebSocketServer
	p := NewProcessor(registry, nil, ResponderFunc(func(line string) { ws.Respond(line) }),
		Config{PollInterval: time.Millisecond, CommandBuffer: 4}, log)
	ws = NewWebSocketServer(p, 0, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	srv := httptest.NewServer(ws)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() string {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		return string(data)
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("DbOps: Ping!")))
	assert.Equal(t, "DbOps: Pong!", read())
	assert.Equal(t, 1, ws.Clients())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte("DbOps: NewJob:{\"jobType\":\"remove\",\"arguments\":[[3]],\"retries\":0}\nDbOps: Jobs")))
	assert.Equal(t, "DbOps: Accepted remove_1", read())
	assert.Equal(t, "DbOps: Result:Completed job 'remove_1'", read())
	assert.True(t, strings.HasPrefix(read(), `DbOps: Jobs:{"Current":"No Jobs_0"`))
}

func TestCheckOrigin(t *testing.T) {
	for origin, want := range map[string]bool{
		"":                         true,
		"http://localhost:8080":    true,
		"http://127.0.0.1:9000":    true,
		"https://evil.example.com": false,
	} {
		r := httptest.NewRequest(http.MethodGet, "/dbops", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, checkOrigin(r), origin)
	}
}

func TestLimiter(t *testing.T) {
	unlimited := (&WebSocketServer{}).limiter()
	assert.True(t, unlimited.Allow())

	limited := (&WebSocketServer{rps: 0.5}).limiter()
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}

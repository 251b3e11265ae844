package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
)

const (
	// wsReadLimit caps one incoming JSON-RPC message.
	wsReadLimit = 1 << 20
	// wsWriteTimeout bounds a single response or push.
	wsWriteTimeout = 5 * time.Second
)

var errBinaryMessage = errors.New("websocket: binary messages are not accepted")

// wsLine carries one JSON-RPC message per websocket text message.
type wsLine struct {
	ctx  context.Context
	conn *cws.Conn
}

func (l *wsLine) Send(data []byte) error {
	ctx, cancel := context.WithTimeout(l.ctx, wsWriteTimeout)
	defer cancel()
	return l.conn.Write(ctx, cws.MessageText, data)
}

func (l *wsLine) Recv() ([]byte, error) {
	typ, data, err := l.conn.Read(l.ctx)
	if err != nil {
		return nil, err
	}
	if typ != cws.MessageText {
		return nil, errBinaryMessage
	}
	return data, nil
}

func (l *wsLine) Close() error {
	return l.conn.Close(cws.StatusNormalClosure, "")
}

// serveWS upgrades the request and serves the session methods on the
// connection until the client goes away. While open, the connection
// receives unit.hook pushes, narrowed by session.subscribe.
func (rs *RPCServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		rs.log.Warning("rpc: websocket accept: %s", err.Error())
		return
	}
	conn.SetReadLimit(wsReadLimit)

	srv := jrpc2.NewServer(rs.methods, &jrpc2.ServerOptions{AllowPush: true})
	// registered before the first request can call session.subscribe
	if rs.notifier != nil {
		rs.notifier.Register(srv)
		defer rs.notifier.Unregister(srv)
	}
	srv.Start(&wsLine{ctx: r.Context(), conn: conn})
	rs.log.Debug("rpc: websocket client %s connected", r.RemoteAddr)
	if err := srv.Wait(); err != nil {
		rs.log.Debug("rpc: websocket client %s left: %s", r.RemoteAddr, err.Error())
	}
}

// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"

	"solstice/internal/log"

	"github.com/gorilla/websocket"
)

// WebSocketPath is the endpoint clients connect to.
const WebSocketPath = "/spectrogram"

// broadcastQueue bounds the reports waiting to be written to clients.
// Reports beyond it are dropped so a slow client never stalls analysis.
const broadcastQueue = 256

var errTransportClosed = errors.New("transport closed")

// WebSocketTransport broadcasts reports as JSON to every connected client.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Report
	server    *http.Server
	done      chan struct{}

	closeMu sync.RWMutex
	closed  bool
}

var _ Transport = (*WebSocketTransport)(nil)

// NewWebSocketTransport creates a transport for addr (host:port) and starts
// its broadcast loop. Call Start to listen on addr, or mount Handler on an
// existing server.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool; any page may subscribe
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Report, broadcastQueue),
		done:      make(chan struct{}),
	}
	go wst.handleBroadcasts()
	return wst
}

// Handler returns an http.Handler serving WebSocketPath.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, wst.handleWebSocket)
	return mux
}

// Start listens on the configured address in a background goroutine.
func (wst *WebSocketTransport) Start() {
	wst.server = &http.Server{
		Addr:    wst.addr,
		Handler: wst.Handler(),
	}
	go func() {
		log.Infof("WebSocketTransport: Serving ws://%s%s", wst.addr, WebSocketPath)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Debugf("WebSocketTransport: Client connected, total: %d", total)

	// Clients only listen; the first read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	if wst.clients[conn] {
		delete(wst.clients, conn)
		conn.Close()
	}
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Debugf("WebSocketTransport: Client disconnected, total: %d", total)
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer close(wst.done)
	for r := range wst.broadcast {
		wst.clientsMu.Lock()
		for client := range wst.clients {
			if err := client.WriteJSON(r); err != nil {
				log.Warnf("WebSocketTransport: Error sending to client: %v", err)
				client.Close()
				delete(wst.clients, client)
			}
		}
		wst.clientsMu.Unlock()
	}
}

// Send queues r for broadcast. When the queue is full the report is dropped.
func (wst *WebSocketTransport) Send(r Report) error {
	wst.closeMu.RLock()
	defer wst.closeMu.RUnlock()
	if wst.closed {
		return errTransportClosed
	}
	select {
	case wst.broadcast <- r:
	default:
		log.Debugf("WebSocketTransport: Queue full, dropped column %d", r.Index)
	}
	return nil
}

// Close drains queued reports, disconnects clients and stops the server.
func (wst *WebSocketTransport) Close() error {
	wst.closeMu.Lock()
	if wst.closed {
		wst.closeMu.Unlock()
		return nil
	}
	wst.closed = true
	close(wst.broadcast)
	wst.closeMu.Unlock()

	<-wst.done

	wst.clientsMu.Lock()
	for client := range wst.clients {
		client.Close()
	}
	wst.clients = make(map[*websocket.Conn]bool)
	wst.clientsMu.Unlock()

	if wst.server != nil {
		return wst.server.Close()
	}
	return nil
}

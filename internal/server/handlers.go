// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, roster inspection, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/lobby/internal/protocol"
)

// ServeWS upgrades the request to a WebSocket and runs a lobby session on it
// until the session ends. It validates that the request uses the GET method.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	if !s.beginSession() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.sessions.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}
	s.setupReadConnection(conn, r.RemoteAddr)

	session := NewSession(conn, r.RemoteAddr, s.dispatcher, s.cfg, s.logger)
	_ = session.Run(s.ctx)
}

// setupReadConnection configures the read limit, read deadline, and pong
// handler for the WebSocket connection.
func (s *Server) setupReadConnection(conn *websocket.Conn, addr string) {
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait)); err != nil {
		s.logger.Warn("Error setting initial read deadline", "addr", addr, "error", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})
}

// RootHandler serves WebSocket upgrades on "/" so clients can connect to the
// bare host address; plain requests get the health message.
func (s *Server) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.ServeWS(w, r)
		return
	}
	HealthHandler(w, r)
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Lobby server is running!")
}

type lobbyResponse struct {
	Players  []protocol.PlayerInLobby `json:"players"`
	Sessions int                      `json:"sessions"`
}

// LobbyHandler returns the current roster and connection count as JSON.
func (s *Server) LobbyHandler(w http.ResponseWriter, _ *http.Request) {
	resp := lobbyResponse{
		Players:  protocol.Roster(s.registry.Snapshot()).Players,
		Sessions: s.directory.Len(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Error writing lobby response", "error", err)
	}
}

// TestPageHandler serves an HTML page for trying the lobby from a browser.
func (s *Server) TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		s.logger.Error("Error writing HTML response", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Lobby Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #players { border: 1px solid #ccc; padding: 10px; margin: 10px 0; min-height: 80px; }
        .player { display: flex; gap: 10px; align-items: center; margin: 4px 0; }
        .swatch { width: 14px; height: 14px; border: 1px solid #333; border-radius: 3px; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Lobby Test</h1>
    <div id="status" class="status disconnected">Disconnected</div>
    <div>
        <input type="text" id="name" placeholder="Your name...">
        <button id="join">Join</button>
        <button id="ready" disabled>Toggle ready</button>
    </div>
    <div id="players"></div>

    <script type="module">
        import { encode, decode } from "https://esm.sh/cbor-x@1";

        const statusDiv = document.getElementById('status');
        const playersDiv = document.getElementById('players');
        const nameInput = document.getElementById('name');
        const joinButton = document.getElementById('join');
        const readyButton = document.getElementById('ready');
        let myId = '';

        const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
        ws.binaryType = 'arraybuffer';

        ws.onopen = () => {
            statusDiv.textContent = 'Connected';
            statusDiv.className = 'status connected';
        };
        ws.onclose = (event) => {
            statusDiv.textContent = 'Disconnected' + (event.reason ? ': ' + event.reason : '');
            statusDiv.className = 'status disconnected';
        };
        ws.onmessage = (event) => {
            const msg = decode(new Uint8Array(event.data));
            if (msg.event_type === 'YourId') {
                myId = msg.id;
            } else if (msg.event_type === 'PlayersInLobby') {
                playersDiv.innerHTML = '';
                for (const p of msg.players) {
                    const row = document.createElement('div');
                    row.className = 'player';
                    const swatch = document.createElement('div');
                    swatch.className = 'swatch';
                    swatch.style.backgroundColor = p.color.toLowerCase();
                    const label = document.createElement('span');
                    label.textContent = p.name + (p.id === myId ? ' (you)' : '') + ' - ' + (p.ready ? 'ready' : 'not ready');
                    row.append(swatch, label);
                    playersDiv.appendChild(row);
                }
            }
        };

        joinButton.onclick = () => {
            const name = nameInput.value.trim();
            if (name === '') return;
            ws.send(encode({ event_type: 'NewPlayer', name }));
            joinButton.disabled = true;
            readyButton.disabled = false;
        };
        readyButton.onclick = () => ws.send(encode({ event_type: 'ToggleReady' }));
    </script>
</body>
</html>`

// Femmebox guessing game
//
// Players in a session must name 50 notable women. Each guess is resolved
// against Wikipedia's full-text search, compared word-by-word against the
// canonical article title with a one-edit-per-word tolerance, then verified
// through Wikidata: the page must map to an entity, the entity's "sex or
// gender" claim must identify a woman, and the first occupation claim
// becomes the entry's category (feminine-form label preferred).
//
// Features:
// - WebSockets per game ID: /femmes/:gameid and /femmes/:gameid/ws
// - Shared session ledger, broadcast to every connected client
// - One in-flight guess per session; concurrent guesses are refused
// - Timer starts on the first guess and stops when the target is reached
// - Sessions auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`           // "guess"
	Text string `json:"text,omitempty"` // raw guess text
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type  string `json:"type"` // "session_info"
	Total int    `json:"total"`
	Lang  string `json:"lang"`
}

// StateMessage broadcasts the session ledger and timer.
type StateMessage struct {
	Type    string  `json:"type"` // "state"
	Found   []Entry `json:"found"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Started bool    `json:"started"`
	Elapsed int64   `json:"elapsed"` // seconds
	Won     bool    `json:"won"`
}

// ResultMessage reports the outcome of a single guess. Accepted results
// are broadcast; rejections go only to the guessing client.
type ResultMessage struct {
	Type     string `json:"type"` // "result"
	Accepted bool   `json:"accepted"`
	Entry    *Entry `json:"entry,omitempty"`
	Message  string `json:"message"`
}

// SimpleMessage is for generic notifications ("busy", "searching", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type guessRequest struct {
	client *Client
	text   string
}

type guessOutcome struct {
	client *Client
	entry  *Entry
	err    error
}

type Hub struct {
	id      string
	clients map[*Client]bool
	ledger  *Ledger

	register chan *Client
	unreg    chan *Client
	guesses  chan guessRequest
	results  chan guessOutcome

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time

	// validating serializes guesses: while true, new submissions are
	// refused rather than queued.
	validating   bool
	timerStarted bool
	startTime    time.Time
	finalElapsed time.Duration
	won          bool
}

func newHub(gameID string) *Hub {
	now := time.Now()
	return &Hub{
		id:         gameID,
		clients:    make(map[*Client]bool),
		ledger:     newLedger(),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		guesses:    make(chan guessRequest),
		results:    make(chan guessOutcome),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run(cfg *Config, v *Validator) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			h.mu.Unlock()

			c.send <- SessionInfoMessage{
				Type:  "session_info",
				Total: cfg.target,
				Lang:  cfg.lang,
			}
			c.send <- h.stateMessage(cfg)

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case gr := <-h.guesses:
			h.handleGuess(cfg, v, gr)

		case out := <-h.results:
			h.handleOutcome(cfg, out)
		}
	}
}

// handleGuess admits at most one guess into the validation chain at a
// time. Empty input is a no-op; input during a pending validation or
// after a win is refused at the boundary.
func (h *Hub) handleGuess(cfg *Config, v *Validator, gr guessRequest) {
	c := gr.client
	text := strings.TrimSpace(gr.text)

	if text == "" || c.playerID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if h.won {
		h.sendLocked(c, SimpleMessage{
			Type:    "complete",
			Message: "La partie est terminée !",
		})
		return
	}

	if h.validating {
		h.sendLocked(c, SimpleMessage{
			Type:    "busy",
			Message: "Recherche en cours...",
		})
		return
	}

	if !h.timerStarted && h.ledger.Count() < cfg.target {
		h.timerStarted = true
		h.startTime = time.Now()
		h.broadcastLocked(h.stateMessageLocked(cfg))
	}

	h.validating = true

	h.sendLocked(c, SimpleMessage{
		Type:    "searching",
		Message: "Recherche...",
	})

	go func() {
		entry, err := v.ValidateGuess(context.Background(), text, h.ledger)
		h.results <- guessOutcome{
			client: c,
			entry:  entry,
			err:    err,
		}
	}()
}

func (h *Hub) handleOutcome(cfg *Config, out guessOutcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()
	h.validating = false

	if out.err != nil {
		var rej *Rejection
		message := ReasonLookupFailed.Message()
		if errors.As(out.err, &rej) {
			message = rej.Reason.Message()
		}

		logf(cfg, "GAMES: Rejected guess in %s: %s", h.id, message)

		h.sendLocked(out.client, ResultMessage{
			Type:     "result",
			Accepted: false,
			Message:  message,
		})
		return
	}

	entry := out.entry
	if !h.ledger.Add(*entry) {
		// Canonical title landed between check and add; cannot happen
		// while guesses are serialized, but refuse rather than corrupt
		// the ledger.
		h.sendLocked(out.client, ResultMessage{
			Type:     "result",
			Accepted: false,
			Message:  ReasonAlreadyFound.Message(),
		})
		return
	}

	logf(cfg, "GAMES: Accepted %q (%s) in %s [%d/%d]",
		entry.Name, entry.Category, h.id, h.ledger.Count(), cfg.target)

	message := "Trouvé ! " + entry.Name
	if h.ledger.Count() >= cfg.target {
		h.won = true
		if h.timerStarted {
			h.finalElapsed = time.Since(h.startTime)
		}
		message = "FÉLICITATIONS ! " + formatElapsed(h.finalElapsed)
	}

	h.broadcastLocked(ResultMessage{
		Type:     "result",
		Accepted: true,
		Entry:    entry,
		Message:  message,
	})
	h.broadcastLocked(h.stateMessageLocked(cfg))
}

func (h *Hub) stateMessage(cfg *Config) StateMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.stateMessageLocked(cfg)
}

func (h *Hub) stateMessageLocked(cfg *Config) StateMessage {
	var elapsed time.Duration
	switch {
	case h.won:
		elapsed = h.finalElapsed
	case h.timerStarted:
		elapsed = time.Since(h.startTime)
	}

	return StateMessage{
		Type:    "state",
		Found:   h.ledger.Entries(),
		Count:   h.ledger.Count(),
		Total:   cfg.target,
		Started: h.timerStarted,
		Elapsed: int64(elapsed.Seconds()),
		Won:     h.won,
	}
}

func formatElapsed(d time.Duration) string {
	total := int64(d.Seconds())

	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// sendLocked assumes h.mu is already held. Clients that unregistered
// while a validation was in flight have a closed send channel; their
// outcome is dropped here rather than delivered.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcastLocked assumes h.mu is already held.
func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "femmebox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	validator   *Validator
}

func newGameManager(idleTimeout time.Duration, v *Validator) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		validator:   v,
	}
	if idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(cfg *Config, gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gameID)
	gm.hubs[gameID] = hub
	go hub.run(cfg, gm.validator)
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for id, hub := range gm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				delete(gm.hubs, id)
				go hub.closeAll()
			}
		}
		gm.mu.Unlock()
	}
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "guess":
			h.guesses <- guessRequest{
				client: c,
				text:   msg.Text,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed femmes/index.html
var indexHTML []byte

//go:embed femmes/app.css
var femmesCSS []byte

//go:embed femmes/app.js
var femmesJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(femmesCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(femmesJS)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerFemmesGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerFemmesGame(cfg *Config, path string, mux *httprouter.Router) {
	wiki := newWikiClient(cfg)
	go wiki.warm(context.Background(), cfg)

	gm := newGameManager(cfg.sessionTimeout, newValidator(wiki))

	full := cfg.prefix + path

	// Root path → redirect to new random game
	mux.GET(full, redirectNewGame(cfg, full, gm))

	// Per-game client view (HTML)
	mux.GET(full+"/:gameid", getIndexHandler(cfg))

	// Shared assets (no gameid in route)
	mux.GET(cfg.prefix+"/assets/femmes/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/femmes/app.js", getJsHandler(cfg))

	// Per-game websocket
	mux.GET(full+"/:gameid/ws", serveWSForManager(cfg, gm))

	// Per-game QR code
	mux.GET(full+"/:gameid/qr", qrHandler)
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/localdb"
	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/melvin/internal/client/session"
	"github.com/dmitrijs2005/melvin/internal/logging"
	"github.com/dmitrijs2005/melvin/internal/timex"
)

// ---- fake Melvin backend ----

type fakeUser struct {
	id       int64
	password string
	admin    bool
	override *string
}

type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	users         map[string]*fakeUser
	tokens        map[string]string
	conversations []models.Conversation
	messages      map[int64][]models.Message
	requests      []models.AccountRequest
	current       string
	available     []string
	summary       *models.ProfileSummary
	questionnaire models.Questionnaire
	hits          map[string]int
	fail          map[string]int
	gates         map[string]chan struct{}
	held          map[string]chan struct{}
	arrived       chan string
	lastChat      models.ChatRequest
	lastBody      map[string]json.RawMessage
	nextID        int64
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		t: t,
		users: map[string]*fakeUser{
			"admin":   {id: 1, password: "Admin-Passw0rd!", admin: true},
			"jace":    {id: 2, password: "Jace-Passw0rd!!"},
			"liliana": {id: 3, password: "Lili-Passw0rd!!"},
		},
		tokens:    map[string]string{},
		messages:  map[int64][]models.Message{},
		current:   "llama3",
		available: []string{"llama3", "mistral", "qwen2"},
		hits:      map[string]int{},
		fail:      map[string]int{},
		gates:     map[string]chan struct{}{},
		held:      map[string]chan struct{}{},
		arrived:   make(chan string, 64),
		nextID:    100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("POST /api/auth/request", b.requestAccount)
	mux.HandleFunc("GET /api/auth/requests", b.admin(b.listRequests))
	mux.HandleFunc("POST /api/auth/requests/{id}/{action}", b.admin(b.decide))
	mux.HandleFunc("GET /api/conversations/", b.auth(b.listConversations))
	mux.HandleFunc("POST /api/conversations/", b.auth(b.createConversation))
	mux.HandleFunc("GET /api/conversations/{id}", b.auth(b.conversation))
	mux.HandleFunc("POST /api/conversations/{id}/chat", b.auth(b.chat))
	mux.HandleFunc("GET /api/models/ollama", b.auth(b.listModels))
	mux.HandleFunc("POST /api/models/ollama", b.admin(b.selectModel))
	mux.HandleFunc("GET /api/models/preferences/me", b.auth(b.ownPreference))
	mux.HandleFunc("POST /api/models/preferences/me", b.auth(b.saveOwnPreference))
	mux.HandleFunc("GET /api/models/preferences/users", b.admin(b.userPreferences))
	mux.HandleFunc("POST /api/models/preferences/users/{id}", b.admin(b.saveUserPreference))
	mux.HandleFunc("GET /api/profiles/me/summary", b.auth(b.profileSummary))
	mux.HandleFunc("GET /api/profiles/questionnaire", b.auth(b.getQuestionnaire))
	mux.HandleFunc("POST /api/profiles/assess", b.auth(b.assess))
	mux.HandleFunc("GET /api/cards/search", b.auth(b.searchCards))
	mux.HandleFunc("GET /api/scryfall/autocomplete", b.auth(b.autocomplete))
	mux.HandleFunc("GET /api/scryfall/search", b.auth(b.scryfallSearch))
	mux.HandleFunc("GET /api/scryfall/card/{name}", b.auth(b.scryfallCard))
	mux.HandleFunc("GET /api/game_state/", b.auth(b.echoJSON(`[{"id":1,"name":"Board","owner":"jace","state":{"stack":[]},"created_at":"2024-05-01T10:00:00","updated_at":"2024-05-01T10:00:00"}]`)))
	mux.HandleFunc("POST /api/game_state/", b.auth(b.createGameState))
	mux.HandleFunc("GET /api/game_state/{id}", b.auth(b.echoJSON(`{"id":1,"name":"Board","owner":null,"state":{"stack":[]},"created_at":"2024-05-01T10:00:00","updated_at":"2024-05-01T10:00:00"}`)))
	mux.HandleFunc("PUT /api/game_state/{id}", b.auth(b.createGameState))
	mux.HandleFunc("DELETE /api/game_state/{id}", b.auth(b.echoJSON(`{"deleted":true}`)))
	mux.HandleFunc("POST /api/rules/is_castable", b.auth(b.recordBody(`{"castable":true}`)))
	mux.HandleFunc("POST /api/rules/validate_targets", b.auth(b.recordBody(`{"valid":true}`)))

	b.srv = httptest.NewServer(b.intercept(mux))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) baseURL() string { return b.srv.URL + "/api" }

func (b *fakeBackend) issue(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.users[username]
	require.NotNil(b.t, u, "unknown user %s", username)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(u.id, 10),
		"username": username,
		"admin":    u.admin,
		"iat":      time.Now().UnixNano(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(b.t, err)
	b.tokens[tok] = username
	return tok
}

// revoke invalidates every issued token.
func (b *fakeBackend) revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]string{}
}

func (b *fakeBackend) failWith(route string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[route] = status
}

// gate makes requests to route block until the returned func is called.
func (b *fakeBackend) gate(route string) func() {
	ch := make(chan struct{})
	b.mu.Lock()
	b.gates[route] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// holdBody makes responses to route send their status and headers at once
// and the body only when the returned func is called.
func (b *fakeBackend) holdBody(route string) func() {
	ch := make(chan struct{})
	b.mu.Lock()
	b.held[route] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

type heldWriter struct {
	http.ResponseWriter
	flushed func()
	release <-chan struct{}
	done    <-chan struct{}
}

func (w *heldWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
	w.flushed()
}

func (w *heldWriter) Write(p []byte) (int, error) {
	select {
	case <-w.release:
	case <-w.done:
	}
	return w.ResponseWriter.Write(p)
}

func (b *fakeBackend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

func (b *fakeBackend) addConversation(title string, msgs ...models.Message) models.Conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	c := models.Conversation{ID: b.nextID, Title: title, CreatedAt: timex.Now()}
	b.conversations = append(b.conversations, c)
	b.messages[c.ID] = msgs
	return c
}

func (b *fakeBackend) addRequest(username string) models.AccountRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	r := models.AccountRequest{ID: b.nextID, Username: username, Status: "pending", CreatedAt: timex.Now()}
	b.requests = append(b.requests, r)
	return r
}

// route is "METHOD /path" with numeric and name segments kept verbatim.
func route(r *http.Request) string {
	return r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
}

func (b *fakeBackend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt := route(r)
		b.mu.Lock()
		b.hits[rt]++
		status := b.fail[rt]
		gate := b.gates[rt]
		held := b.held[rt]
		b.mu.Unlock()

		if gate != nil {
			b.arrived <- rt
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]any{"detail": http.StatusText(status)})
			return
		}
		if held != nil {
			w = &heldWriter{
				ResponseWriter: w,
				flushed:        func() { b.arrived <- rt },
				release:        held,
				done:           r.Context().Done(),
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *fakeBackend) waitArrived(t *testing.T, rt string) {
	t.Helper()
	select {
	case got := <-b.arrived:
		require.Equal(t, rt, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("request %s never arrived", rt)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) user(r *http.Request) *fakeUser {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	defer b.mu.Unlock()
	name, ok := b.tokens[tok]
	if !ok {
		return nil
	}
	return b.users[name]
}

func (b *fakeBackend) auth(h func(http.ResponseWriter, *http.Request, *fakeUser)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := b.user(r)
		if u == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid authentication credentials"})
			return
		}
		h(w, r, u)
	}
}

func (b *fakeBackend) admin(h func(http.ResponseWriter, *http.Request, *fakeUser)) http.HandlerFunc {
	return b.auth(func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		if !u.admin {
			writeJSON(w, http.StatusForbidden, map[string]any{"detail": "Admin privileges required"})
			return
		}
		h(w, r, u)
	})
}

func (b *fakeBackend) echoJSON(body string) func(http.ResponseWriter, *http.Request, *fakeUser) {
	return func(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (b *fakeBackend) recordBody(resp string) func(http.ResponseWriter, *http.Request, *fakeUser) {
	return func(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.lastBody = body
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(resp))
	}
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	u, ok := b.users[in.Username]
	valid := ok && u.password == in.Password
	b.mu.Unlock()
	if !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: b.issue(in.Username), TokenType: "bearer"})
}

func (b *fakeBackend) requestAccount(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	_, exists := b.users[in.Username]
	b.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Username already exists"})
		return
	}
	writeJSON(w, http.StatusOK, b.addRequest(in.Username))
}

func (b *fakeBackend) listRequests(w http.ResponseWriter, _ *http.Request, _ *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.AccountRequest{}
	for _, r := range b.requests {
		if r.Status == "pending" {
			out = append(out, r)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) decide(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	action := r.PathValue("action")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.requests {
		if b.requests[i].ID != id {
			continue
		}
		switch action {
		case "approve":
			b.requests[i].Status = "approved"
			b.nextID++
			b.users[b.requests[i].Username] = &fakeUser{id: b.nextID, password: "x"}
		case "deny":
			b.requests[i].Status = "denied"
		}
		writeJSON(w, http.StatusOK, b.requests[i])
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Request not found"})
}

func (b *fakeBackend) listConversations(w http.ResponseWriter, _ *http.Request, _ *fakeUser) {
	b.mu.Lock()
	list := append([]models.Conversation{}, b.conversations...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (b *fakeBackend) createConversation(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	var in models.NewConversation
	_ = json.NewDecoder(r.Body).Decode(&in)
	writeJSON(w, http.StatusOK, b.addConversation(in.Title))
}

func (b *fakeBackend) conversation(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conversations {
		if c.ID == id {
			writeJSON(w, http.StatusOK, models.ConversationDetail{Conversation: c, Messages: append([]models.Message{}, b.messages[id]...)})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Conversation not found"})
}

func (b *fakeBackend) chat(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var in models.ChatRequest
	_ = json.NewDecoder(r.Body).Decode(&in)

	reply := models.Message{
		Sender:    "melvin",
		Content:   fmt.Sprintf("Answer to %q", in.Question),
		CreatedAt: timex.Now(),
		Thinking:  []models.ThinkingStep{{Label: "Rules", Detail: "Matched 1 rule"}},
		Context:   map[string]json.RawMessage{"model": json.RawMessage(`"llama3"`)},
	}

	b.mu.Lock()
	b.lastChat = in
	b.messages[id] = append(b.messages[id],
		models.Message{Sender: models.SenderUser, Content: in.Question, CreatedAt: timex.Now()}, reply)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, reply)
}

func (b *fakeBackend) listModels(w http.ResponseWriter, _ *http.Request, _ *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, models.ModelOptions{Current: b.current, Available: b.available})
}

func (b *fakeBackend) selectModel(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	var in models.ModelSelection
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = in.Model
	writeJSON(w, http.StatusOK, models.ModelOptions{Current: b.current, Available: b.available})
}

func (b *fakeBackend) preferenceOf(u *fakeUser) models.ModelPreference {
	eff, _ := Resolve(u.override, b.current)
	return models.ModelPreference{Preferred: u.override, Effective: eff}
}

func (b *fakeBackend) ownPreference(w http.ResponseWriter, _ *http.Request, u *fakeUser) {
	b.mu.Lock()
	pref := b.preferenceOf(u)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, pref)
}

func (b *fakeBackend) saveOwnPreference(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	var in models.ModelPreferenceUpdate
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	defer b.mu.Unlock()
	u.override = in.Model
	writeJSON(w, http.StatusOK, b.preferenceOf(u))
}

func (b *fakeBackend) userRow(name string, u *fakeUser) models.UserModelPreference {
	return models.UserModelPreference{
		ID: u.id, Username: name, IsAdmin: u.admin,
		CreatedAt:       timex.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		ModelPreference: b.preferenceOf(u),
	}
}

func (b *fakeBackend) userPreferences(w http.ResponseWriter, _ *http.Request, _ *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.UserModelPreference{}
	for _, name := range []string{"admin", "jace", "liliana"} {
		if u, ok := b.users[name]; ok {
			out = append(out, b.userRow(name, u))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) saveUserPreference(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var in models.ModelPreferenceUpdate
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, u := range b.users {
		if u.id == id {
			u.override = in.Model
			writeJSON(w, http.StatusOK, b.userRow(name, u))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "User not found"})
}

func (b *fakeBackend) profileSummary(w http.ResponseWriter, _ *http.Request, _ *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.summary == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, b.summary)
}

func (b *fakeBackend) getQuestionnaire(w http.ResponseWriter, _ *http.Request, _ *fakeUser) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.questionnaire)
}

func (b *fakeBackend) assess(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	var in models.AssessmentSubmission
	_ = json.NewDecoder(r.Body).Decode(&in)
	sum := &models.ProfileSummary{
		PrimaryType:      "melvin",
		PrimaryTypeLabel: "Melvin",
		PrimaryScore:     float64(len(in.Answers)) / 10,
		Description:      "Loves the rules.",
	}
	b.mu.Lock()
	b.summary = sum
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, sum)
}

func (b *fakeBackend) searchCards(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, models.CardSearchResponse{Results: []models.Card{
		{Name: q, TypeLine: "Artifact", OracleText: "limit " + r.URL.Query().Get("limit")},
	}})
}

func (b *fakeBackend) autocomplete(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, models.Autocomplete{Object: "catalog", TotalValues: 2, Data: []string{q + " One", q + " Two"}})
}

func (b *fakeBackend) scryfallSearch(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list", "total_cards": 1, "has_more": false,
		"data": []any{map[string]any{"name": r.URL.Query().Get("q"), "type_line": "Artifact"}},
	})
}

func (b *fakeBackend) scryfallCard(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	writeJSON(w, http.StatusOK, models.ScryfallCard{Name: r.PathValue("name"), ManaCost: "{1}", TypeLine: "Artifact"})
}

func (b *fakeBackend) createGameState(w http.ResponseWriter, r *http.Request, _ *fakeUser) {
	var body map[string]json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.lastBody = body
	b.mu.Unlock()
	name := "Untitled"
	if raw, ok := body["name"]; ok {
		_ = json.Unmarshal(raw, &name)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id": 7, "name": name, "owner": nil, "state": body["state"],
		"created_at": "2024-05-01T10:00:00", "updated_at": "2024-05-01T10:00:00",
	})
}

// ---- harness ----

type notices struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notices) Notify(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *notices) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type harness struct {
	backend *fakeBackend
	db      *sql.DB
	sess    *session.Session
	gateway *client.HTTPClient
	notices *notices
	svc     *Services
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := localdb.Open(context.Background(), filepath.Join(t.TempDir(), "melvin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := newFakeBackend(t)
	db := openDB(t)
	sess := session.New(session.NewTokenStore(metadata.NewSQLiteRepository(db)))
	n := &notices{}
	gw := client.NewHTTPClient(b.baseURL(), 5*time.Second, sess, n, logging.Discard())
	return &harness{
		backend: b,
		db:      db,
		sess:    sess,
		gateway: gw,
		notices: n,
		svc:     New(gw, sess, db, ArchiveConfig{}, logging.Discard()),
	}
}

// login begins a session for username directly, without bootstrap.
func (h *harness) login(t *testing.T, username string) {
	t.Helper()
	_, err := h.sess.Begin(context.Background(), h.backend.issue(username))
	require.NoError(t, err)
}

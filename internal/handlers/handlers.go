package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todolist/internal/auth"
	"todolist/internal/models"
	"todolist/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// AccountContextKey is the context key for the authenticated account.
	AccountContextKey contextKey = "account"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// SessionDuration is how long sessions last (30 days).
	SessionDuration = 30 * 24 * time.Hour
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	secureCookie bool
	corsOrigin   string
}

// NewHandlers creates a new Handlers instance. corsOrigin is the single
// browser origin allowed to call the API with credentials; empty
// disables CORS headers (same-origin deployment).
func NewHandlers(db *storage.DB, secureCookie bool, corsOrigin string) *Handlers {
	return &Handlers{db: db, secureCookie: secureCookie, corsOrigin: corsOrigin}
}

// GetAccountFromContext retrieves the authenticated account from request context.
func GetAccountFromContext(r *http.Request) *models.Account {
	if account, ok := r.Context().Value(AccountContextKey).(*models.Account); ok {
		return account
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// storageFail maps a storage error onto the HTTP response: ErrNotFound
// becomes 404, anything else is logged and answered with a generic 500.
func storageFail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		fail(w, http.StatusNotFound, "not found")
		return
	}
	log.Printf("%s error: %v", op, err)
	fail(w, http.StatusInternalServerError, "internal error")
}

// sameSite picks the cookie SameSite attribute. A secure deployment
// splits the client and API across origins, which needs SameSite=None;
// plain local serving keeps Lax.
func (h *Handlers) sameSite() http.SameSite {
	if h.secureCookie {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: h.sameSite(),
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: h.sameSite(),
	})
}

// CORSMiddleware reflects the configured origin with credentials
// support and short-circuits preflight requests.
func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.corsOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware wraps handlers to require a valid session.
// It also implements rolling sessions: if a session is past the halfway
// point of its lifetime, it automatically renews the session.
func (h *Handlers) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
		if err != nil {
			// Invalid or expired session, clear the cookie
			h.clearSessionCookie(w)
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Rolling session: renew if past halfway point. This keeps
		// active users logged in while still expiring inactive sessions.
		now := time.Now()
		if sessionInfo.Session.ExpiresAt.Sub(now) < SessionDuration/2 {
			newExpiresAt := now.Add(SessionDuration)
			if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
				h.setSessionCookie(w, cookie.Value)
			}
			// If renewal fails, just continue with the current session
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, sessionInfo.Account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// Register creates a new account.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Older clients send the username under "name".
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.TrimSpace(req.Name)
	}

	if username == "" || req.Password == "" || req.Confirm == "" {
		fail(w, http.StatusBadRequest, "username, password and confirmation are required")
		return
	}
	if req.Password != req.Confirm {
		fail(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.db.CreateAccount(username, hash); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			fail(w, http.StatusConflict, "username already taken")
			return
		}
		log.Printf("CreateAccount error: %v", err)
		fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and establishes a session. Unknown
// usernames and wrong passwords produce the same response so the two
// cannot be told apart.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	account, err := h.db.GetAccountByUsername(username)
	if err != nil {
		// Burn a bcrypt comparison so the unknown-user path costs
		// about as much as a failed password check.
		auth.CheckPassword(req.Password, auth.DummyHash)
		fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !auth.CheckPassword(req.Password, account.PasswordHash) {
		fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateSessionToken()
	if err != nil {
		log.Printf("Failed to generate session token: %v", err)
		fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	expiresAt := time.Now().Add(SessionDuration)
	if err := h.db.CreateSession(token, account.ID, expiresAt); err != nil {
		log.Printf("Failed to create session: %v", err)
		fail(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Logout destroys the current session, if any. Always succeeds from the
// client's perspective.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetSession reports whether the request carries a valid session. It
// never fails; an absent or stale session answers {session:false}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, map[string]any{"session": false})
		return
	}

	account, err := h.db.ValidateSession(cookie.Value)
	if err != nil {
		h.clearSessionCookie(w)
		writeJSON(w, http.StatusOK, map[string]any{"session": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": true,
		"user": map[string]any{
			"id":       account.ID,
			"username": account.Username,
		},
	})
}

// GetLists returns the authenticated account's lists, newest first.
func (h *Handlers) GetLists(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	lists, err := h.db.ListsByAccount(account.ID)
	if err != nil {
		storageFail(w, "ListsByAccount", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "list": lists})
}

type addListRequest struct {
	ListTitle string `json:"listTitle"`
}

// AddList creates a new list for the authenticated account.
func (h *Handlers) AddList(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	var req addListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.ListTitle)
	if title == "" {
		fail(w, http.StatusBadRequest, "list title is required")
		return
	}

	list, err := h.db.CreateList(account.ID, title)
	if err != nil {
		storageFail(w, "CreateList", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "list": list})
}

// EditList renames a list.
func (h *Handlers) EditList(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusNotFound, "not found")
		return
	}

	var req addListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.ListTitle)
	if title == "" {
		fail(w, http.StatusBadRequest, "list title is required")
		return
	}

	list, err := h.db.UpdateListTitle(id, account.ID, title)
	if err != nil {
		storageFail(w, "UpdateListTitle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "list": list})
}

// DeleteList removes a list and all its items.
func (h *Handlers) DeleteList(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.db.DeleteList(id, account.ID); err != nil {
		storageFail(w, "DeleteList", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetItems returns a list's items, newest first. An unknown list id
// answers an empty items array rather than an error, so a freshly
// cascade-deleted list reads back empty.
func (h *Handlers) GetItems(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	listID, err := strconv.ParseInt(r.PathValue("listId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": []models.Item{}})
		return
	}

	items, err := h.db.ItemsByList(listID, account.ID)
	if err != nil {
		storageFail(w, "ItemsByList", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items})
}

type addItemRequest struct {
	ListID      int64  `json:"list_id"`
	Description string `json:"description"`
}

// AddItem creates an item inside a list.
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		fail(w, http.StatusBadRequest, "description is required")
		return
	}

	item, err := h.db.CreateItem(req.ListID, account.ID, description)
	if err != nil {
		storageFail(w, "CreateItem", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

type editItemRequest struct {
	Description string `json:"description"`
}

// EditItem rewords an item.
func (h *Handlers) EditItem(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusNotFound, "not found")
		return
	}

	var req editItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		fail(w, http.StatusBadRequest, "description is required")
		return
	}

	item, err := h.db.UpdateItemDescription(id, account.ID, description)
	if err != nil {
		storageFail(w, "UpdateItemDescription", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "item": item})
}

// DeleteItem removes an item. Repeating the delete is a 404.
func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	account := GetAccountFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		fail(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.db.DeleteItem(id, account.ID); err != nil {
		storageFail(w, "DeleteItem", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

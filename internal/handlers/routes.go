package handlers

import "net/http"

// Routes builds the API route table. One canonical handler per route;
// everything except register, login, logout and the session check sits
// behind the session middleware.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /get-session", h.GetSession)

	protected := func(fn http.HandlerFunc) http.Handler {
		return h.SessionMiddleware(fn)
	}
	mux.Handle("GET /get-list", protected(h.GetLists))
	mux.Handle("POST /add-list", protected(h.AddList))
	mux.Handle("PUT /edit-list/{id}", protected(h.EditList))
	mux.Handle("DELETE /delete-list/{id}", protected(h.DeleteList))
	mux.Handle("GET /get-items/{listId}", protected(h.GetItems))
	mux.Handle("POST /add-items", protected(h.AddItem))
	mux.Handle("PUT /edit-item/{id}", protected(h.EditItem))
	mux.Handle("DELETE /delete-item/{id}", protected(h.DeleteItem))
	mux.Handle("GET /get-summary", protected(h.GetSummary))

	return mux
}

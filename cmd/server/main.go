package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"todolist/internal/auth"
	"todolist/internal/handlers"
	"todolist/internal/storage"

	"github.com/spf13/viper"
)

// config holds the server's externally supplied settings.
type config struct {
	Port         string
	DBPath       string
	StaticDir    string
	SecureCookie bool
	CORSOrigin   string
	AdminUser    string
	AdminPass    string
}

// loadConfig reads configuration from the environment via viper. The
// TODO_-prefixed names are canonical; PORT, DB_PATH, ADMIN_USER and
// ADMIN_PASSWORD are honored for compatibility with older deploys.
func loadConfig() config {
	v := viper.New()
	v.SetEnvPrefix("TODO")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "todos.db")
	v.SetDefault("static_dir", "web/static")
	v.SetDefault("secure_cookie", false)
	v.SetDefault("cors_origin", "")

	cfg := config{
		Port:         v.GetString("port"),
		DBPath:       v.GetString("db_path"),
		StaticDir:    v.GetString("static_dir"),
		SecureCookie: v.GetBool("secure_cookie"),
		CORSOrigin:   v.GetString("cors_origin"),
		AdminUser:    v.GetString("admin_user"),
		AdminPass:    v.GetString("admin_password"),
	}

	if p := os.Getenv("PORT"); p != "" {
		cfg.Port = p
	}
	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.DBPath = p
	}
	if u := os.Getenv("ADMIN_USER"); u != "" {
		cfg.AdminUser = u
	}
	if p := os.Getenv("ADMIN_PASSWORD"); p != "" {
		cfg.AdminPass = p
	}

	return cfg
}

// seedAdminAccount creates the configured admin account when the
// account table is still empty, so a fresh deploy is immediately
// usable without the adduser CLI.
func seedAdminAccount(db *storage.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	count, err := db.AccountCount()
	if err != nil {
		return fmt.Errorf("counting accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	if _, err := db.CreateAccount(username, hash); err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}

	log.Printf("Seeded admin account %q", username)
	return nil
}

// setupRouter assembles the API routes, the static file tree and the
// SPA entry point behind the CORS middleware.
func setupRouter(h *handlers.Handlers, staticDir string) http.Handler {
	mux := h.Routes()

	mux.Handle("GET /static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(staticDir))))

	// Everything else is the single-page client; view routing happens
	// in the browser.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	})

	return h.CORSMiddleware(mux)
}

func main() {
	cfg := loadConfig()

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := seedAdminAccount(db, cfg.AdminUser, cfg.AdminPass); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	if err := db.CleanExpiredSessions(); err != nil {
		log.Printf("Failed to clean expired sessions: %v", err)
	}

	h := handlers.NewHandlers(db, cfg.SecureCookie, cfg.CORSOrigin)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      setupRouter(h, cfg.StaticDir),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server listening on http://localhost:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

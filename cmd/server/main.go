package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/term"

	"salonrecon/internal/config"
	"salonrecon/internal/handlers/admin"
	"salonrecon/internal/handlers/portal"
	apphttp "salonrecon/internal/http"
	"salonrecon/internal/services/remote"
	"salonrecon/internal/services/session"
	"salonrecon/internal/services/vault"
	"salonrecon/internal/version"
)

var (
	cfg      *config.Config
	vlt      *vault.Vault
	sessions *session.Store
	scripts  *remote.Client
)

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	info := version.Get()
	if *showVersion {
		fmt.Println(info.String())
		return
	}
	if warning := info.Check(); warning != "" {
		log.Print(warning)
	}

	cfg = config.Load()
	log.Printf("Starting salonrecon %s on %s", info.Version, cfg.ListenAddr)
	log.Printf("Vault directory: %s", cfg.VaultDirectory)

	var err error
	vlt, err = vault.Open(cfg.VaultDirectory)
	if err != nil {
		log.Fatalf("Failed to open vault: %v", err)
	}
	if err := unlockVault(vlt, cfg.VaultPassphrase); err != nil {
		log.Fatalf("Failed to unlock vault: %v", err)
	}

	if err := SetupDependencies(cfg); err != nil {
		log.Fatalf("Failed to set up dependencies: %v", err)
	}

	purger, err := sessions.SchedulePurge(cfg.PurgeSchedule, cfg.SessionMaxAge)
	if err != nil {
		log.Fatalf("Failed to schedule session purge: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	<-purger.Stop().Done()

	// Allow an in-flight comparison to finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ScriptTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Warning: shutdown did not complete: %v", err)
	}
	vlt.Lock()
}

// unlockVault unlocks a sealed vault, prompting on the terminal when no
// passphrase is configured. An unsealed vault is sealed when a passphrase is set.
func unlockVault(v *vault.Vault, passphrase string) error {
	if !v.IsSealed() {
		if passphrase == "" {
			log.Println("Warning: vault is not encrypted; set SALON_VAULT_PASSPHRASE to seal it")
			return nil
		}
		log.Println("Sealing vault with configured passphrase")
		return v.Seal(passphrase)
	}

	if passphrase == "" {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return errors.New("vault is sealed and SALON_VAULT_PASSPHRASE is not set")
		}
		fmt.Fprint(os.Stderr, "Vault passphrase: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		passphrase = strings.TrimSpace(string(pw))
	}

	return v.Unlock(passphrase)
}

// SetupDependencies builds the services and hands them to the handler packages.
// vlt may be set beforehand; otherwise the vault is opened unlocked from c.
func SetupDependencies(c *config.Config) error {
	cfg = c

	if vlt == nil {
		v, err := vault.Open(c.VaultDirectory)
		if err != nil {
			return fmt.Errorf("failed to open vault: %w", err)
		}
		vlt = v
	}
	if !vlt.IsUnlocked() {
		return vault.ErrLocked
	}

	sessions = session.NewStore(vlt, c.NoticeTTL)
	scripts = remote.New(c.ScriptBaseURL, c.ScriptTimeout)

	portal.Initialize(sessions, scripts, c.Analyzer(), c.MaxUploadBytes)
	admin.Initialize(sessions, scripts)

	return nil
}

// SetupRouter creates the chi router with all routes
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/api/health", handleHealth)

	portal.RegisterRoutes(r)
	admin.RegisterRoutes(r)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  version.Get().Version,
		"sessions": sessions.Count(),
		"vault": map[string]bool{
			"sealed":   vlt.IsSealed(),
			"unlocked": vlt.IsUnlocked(),
		},
	})
}

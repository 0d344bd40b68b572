package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the Face Attendance web API.

The API accepts camera frames for marking, lists and exports the ledger,
records class absences and serves daily statistics. Prometheus metrics are
exposed on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
	serveCmd.Flags().String("notify-file", "", "Append every marked batch to this file as a JSON line")
}

// applyServeFlags lets command flags override the environment configuration.
func applyServeFlags(cmd *cobra.Command, a *app) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		a.cfg.Web.SessionSecret = secret
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	applyServeFlags(cmd, a)

	if a.cfg.Web.AdminPassword == "" {
		a.log.Warn("WEB_ADMIN_PASSWORD is not set, admin login is disabled")
	}
	if a.cfg.Web.SessionSecret == "" {
		a.log.Warn("WEB_SESSION_SECRET is not set, using the development secret")
	}

	session, closeNotify, err := a.newSession(mustGetString(cmd, "notify-file"))
	if err != nil {
		return err
	}
	defer closeNotify()

	server := web.NewServer(a.cfg, web.Services{
		Ledger:  a.ledger,
		Gallery: a.gallery,
		Session: session,
		Purger:  a.purger(),
		Metrics: a.metrics,
		Log:     a.log.Component("web"),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.Error("shutdown failed", "error", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Printf("Ledger: %s (%d events), gallery: %s (%d people)\n",
		a.cfg.Ledger.Backend, a.ledger.Len(), a.cfg.Gallery.Source, a.gallery.Current().Len())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

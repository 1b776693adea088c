// Package serve hosts the generated site over local HTTP for previewing.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"mastohuman/internal/logging"
)

// Port is the fixed local preview port.
const Port = 8000

// Site serves the given directory on localhost until the context is
// cancelled. It prints the startup banner to stdout.
func Site(ctx context.Context, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("site directory %s does not exist; run render first", dir)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      http.FileServer(http.Dir(dir)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	fmt.Printf("Serving %s at http://%s/ (Ctrl+C to stop)\n", dir, addr)
	logging.Serve("Serving %s on %s", dir, addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logging.Serve("Server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

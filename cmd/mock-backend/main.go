// Command mock-backend runs a deterministic LLM backend for local runs and
// integration tests. It speaks the Chat Completions, Responses and Ollama
// wire formats, streaming and non-streaming, and picks its reply from the
// last user message:
//
//	tools present           one get_weather tool call
//	"count from 1 to 5"     "1, 2, 3, 4, 5"
//	"think"                 reasoning followed by "42"
//	"fail"                  one text delta, then a backend error
//	anything else           "Hello, nice day!"
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("POST /v1/responses", handleResponses)
	mux.HandleFunc("POST /v1/embeddings", handleEmbeddings)
	mux.HandleFunc("POST /v1/images/generations", handleImages)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("POST /api/chat", handleOllamaChat)
	mux.HandleFunc("POST /api/embed", handleOllamaEmbed)
	mux.HandleFunc("GET /api/tags", handleOllamaTags)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}
	srv := &http.Server{Addr: ":" + port, Handler: newMux(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// Package cloudfunctions exposes the pipeline API as a Google Cloud Function.
package cloudfunctions

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/di"
	"github.com/pep299/research-blog-pipeline/internal/handlers"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/transport/response"
)

func init() {
	functions.HTTP("RunPipeline", RunPipeline)
}

var (
	handlerOnce sync.Once
	handler     http.Handler
	handlerErr  error
)

// RunPipeline serves the /api/v1 routes. Dependencies are built on the first
// request and reused by later requests on the same instance.
func RunPipeline(w http.ResponseWriter, r *http.Request) {
	handlerOnce.Do(func() {
		handler, handlerErr = newHandler(context.Background())
	})
	if handlerErr != nil {
		log.Printf("Failed to create handler: %v", handlerErr)
		response.Internal(w, "Internal server error")
		return
	}

	handler.ServeHTTP(w, r)
}

func newHandler(ctx context.Context) (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Verbose)
	if err != nil {
		return nil, err
	}

	container, err := di.NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return handlers.NewServer(container).SetupRoutes(), nil
}

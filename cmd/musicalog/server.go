package main

import (
	"net/http"

	"musicalog/internal/app/albums"
	"musicalog/internal/config"
	"musicalog/internal/http/middleware"
	"musicalog/internal/httpapi"
	"musicalog/internal/logging"
	"musicalog/internal/store"
)

func newHTTPHandler(cfg *config.Config, albumStore store.Store, logger *logging.Logger) http.Handler {
	albumSvc := albums.New(albumStore)

	var handler http.Handler = httpapi.New(albumSvc, logger).Routes()
	handler = middleware.CORS(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestLogging(logger)(handler)
	return handler
}

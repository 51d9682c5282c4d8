package middleware

import (
	"net/http"
	"slices"

	"society-billing/internal/config"

	"github.com/rs/cors"
)

// NewCORS lets the society dashboard call the API from the browser. Requests
// authenticate with bearer tokens, so credentials are only allowed for an
// explicit origin list, never for "*".
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins := cfg.Server.CorsAllowedOrigins
	headers := cfg.Server.CorsAllowedHeaders
	if !slices.Contains(headers, RequestIDHeader) {
		headers = append(slices.Clone(headers), RequestIDHeader)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: cfg.Server.CorsAllowedMethods,
		AllowedHeaders: headers,
		// receipts and exports are downloads; the UI reads the filename
		ExposedHeaders:   []string{RequestIDHeader, "Content-Disposition"},
		AllowCredentials: len(origins) > 0 && !slices.Contains(origins, "*"),
		MaxAge:           300, // 5 minutes
	})

	return c.Handler
}

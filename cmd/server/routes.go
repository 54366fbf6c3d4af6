package main

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

//go:embed web
var webFS embed.FS

// Handler registers all HTTP routes and middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Client page and assets
	mux.HandleFunc("/", s.handleRoot)
	static, _ := fs.Sub(webFS, "web/static")
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Recorded and merged clips
	prefix := s.config.MediaURLPrefix
	mux.Handle(prefix, http.StripPrefix(prefix, mediaFiles(http.FileServer(http.Dir(s.service.MediaDir())))))

	// Game endpoints
	mux.HandleFunc("/get-instructions", s.handleInstructions)
	mux.HandleFunc("/check-text-guess", s.handleCheckGuessRoute)
	mux.HandleFunc("/merge-audio", s.handleMergeRoute)

	// Health and registry endpoints
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health/metrics", s.handleMetrics)
	mux.HandleFunc("/api/clips", s.handleClips)

	return loggingMiddleware(corsMiddleware(s.config.AllowedOrigins)(mux))
}

// mediaTypes are the content types clips are served with. Anything else in
// the media root goes out as an opaque download.
var mediaTypes = map[string]string{
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// mediaFiles hides directory indexes of the media root and pins the content
// type of every clip so that browsers never render one as a page.
func mediaFiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}

		ctype, ok := mediaTypes[strings.ToLower(path.Ext(r.URL.Path))]
		if !ok {
			ctype = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						w.Header().Add("Vary", "Origin")
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware logs all HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		log := logger.GetLogger()
		log.Debugf("%s %s from %s", r.Method, r.URL.Path, getClientIP(r))

		next.ServeHTTP(wrapped, r)

		log.Infof("%s %s -> %d", r.Method, r.URL.Path, wrapped.statusCode)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func (s *Server) logStartup() {
	s.log.Infof("EchoCommand server starting on :%s", s.config.Port)
	s.log.Infof("   Media dir: %s (served at %s)", s.service.MediaDir(), s.config.MediaURLPrefix)
	s.log.Infof("   Oracle: %s (matching enabled: %t)", s.config.OracleProvider, s.service.MatchingEnabled())
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /                        - Game client")
	s.log.Infof("   GET    /get-instructions        - Instruction list")
	s.log.Infof("   POST   /check-text-guess        - Upload an attempt and check it")
	s.log.Infof("   POST   /merge-audio             - Merge recorded attempts")
	s.log.Infof("   GET    /api/clips               - List stored clips")
	s.log.Infof("   GET    /health                  - Health check")
	s.log.Infof("   GET    /api/health/metrics      - Server metrics")
}

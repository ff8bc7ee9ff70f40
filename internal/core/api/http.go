package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/solatis/siren/internal/catalog"
	"github.com/solatis/siren/internal/core/auth"
	"github.com/solatis/siren/internal/siren"
	"github.com/solatis/siren/internal/types"
)

// maxFormBytes bounds action submissions; a review body is at most a few KB.
const maxFormBytes = 64 << 10

// Handler returns the HTTP router. A nil authenticator leaves every route
// open; otherwise only /healthz is reachable without a key.
func (s *Service) Handler(authn *auth.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, fmt.Errorf("%s: %w", r.URL.Path, types.ErrNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeDocument(w, http.StatusMethodNotAllowed, errorDocument(http.StatusMethodNotAllowed, errMethod, r.URL.RequestURI()))
	})

	r.Get("/healthz", s.health)

	r.Group(func(r chi.Router) {
		if authn != nil {
			r.Use(authn.Middleware(s.writeError))
		}
		for pattern, fn := range s.routes() {
			r.Get(pattern, s.serveEntity(fn))
		}
		r.Post("/courses/{courseID}/reviews", s.addReview)
		r.Post("/courses/{courseID}/close", s.closeCourse)
	})
	return r
}

// serveEntity renders the value fn loads, honoring If-None-Match.
func (s *Service) serveEntity(fn lookupFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body, etag, err := s.marshal(v)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		s.writeBody(w, http.StatusOK, body)
	}
}

// addReview handles the addReview action.
func (s *Service) addReview(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathID(r, "courseID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}

	review, err := s.store.AddReview(courseID, catalog.NewReview{
		UserID: r.PostForm.Get("userid"),
		Body:   r.PostForm.Get("body"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.resolver.Render(review)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, l := range doc.Links {
		if len(l.Rel) > 0 && l.Rel[0] == "self" {
			w.Header().Set("Location", l.Href)
		}
	}
	s.writeDocument(w, http.StatusCreated, doc)
}

// closeCourse handles the close action.
func (s *Service) closeCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := pathID(r, "courseID")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	course, err := s.store.CloseCourse(courseID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.resolver.Render(course)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeDocument(w, http.StatusOK, doc)
}

func (s *Service) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// parseForm requires a form-encoded body.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != catalog.FormType {
		return &catalog.FieldError{Field: "Content-Type", Reason: "must be " + catalog.FormType}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return &catalog.FieldError{Field: "body", Reason: "unreadable form"}
	}
	return nil
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	s.writeDocument(w, status, errorDocument(status, err, r.URL.RequestURI()))
}

func (s *Service) writeDocument(w http.ResponseWriter, status int, doc *siren.Document) {
	body, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("encode siren document", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.writeBody(w, status, body)
}

// writeBody writes an already marshaled document so encoding failures never
// leave a partial response.
func (s *Service) writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", siren.MediaType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Package api serves catalog entities as Siren documents over HTTP and gRPC.
//
// Both transports share Service: GET routes and EntityService/GetEntity
// resolve a resource path through the same chi route table, render the
// resulting value with the siren resolver and map errors the same way.
package api

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/solatis/siren/internal/catalog"
	"github.com/solatis/siren/internal/siren"
	"github.com/solatis/siren/internal/types"
)

// Service resolves resource paths to catalog entities and renders them.
type Service struct {
	store    *catalog.Store
	resolver *siren.Resolver
	logger   *zap.Logger
	lookup   chi.Router
	ping     func(context.Context) error
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHealthCheck makes /healthz report ping failures as unavailable.
func WithHealthCheck(ping func(context.Context) error) ServiceOption {
	return func(s *Service) { s.ping = ping }
}

var errMethod = errors.New("method not allowed")

// lookupFunc loads the value a GET route names.
type lookupFunc func(r *http.Request) (any, error)

// NewService creates the service. A nil logger discards output.
func NewService(store *catalog.Store, resolver *siren.Resolver, logger *zap.Logger, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: store, resolver: resolver, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	s.lookup = chi.NewRouter()
	s.lookup.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resultFrom(r.Context()).err = types.ErrNotFound
	})
	for pattern, fn := range s.routes() {
		s.lookup.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
			res := resultFrom(r.Context())
			res.value, res.err = fn(r)
		})
	}
	return s, nil
}

// routes is the GET route table shared by HTTP and gRPC.
func (s *Service) routes() map[string]lookupFunc {
	return map[string]lookupFunc{
		"/courses": func(r *http.Request) (any, error) {
			offset, limit, err := pageParams(r)
			if err != nil {
				return nil, err
			}
			return s.store.Courses(r.URL.Query().Get("status"), offset, limit)
		},
		"/courses/{courseID}": func(r *http.Request) (any, error) {
			id, err := pathID(r, "courseID")
			if err != nil {
				return nil, err
			}
			return s.store.Course(id)
		},
		"/courses/{courseID}/reviews": func(r *http.Request) (any, error) {
			id, err := pathID(r, "courseID")
			if err != nil {
				return nil, err
			}
			offset, limit, err := pageParams(r)
			if err != nil {
				return nil, err
			}
			return s.store.Reviews(id, offset, limit)
		},
		"/courses/{courseID}/reviews/{reviewID}": func(r *http.Request) (any, error) {
			courseID, err := pathID(r, "courseID")
			if err != nil {
				return nil, err
			}
			reviewID, err := pathID(r, "reviewID")
			if err != nil {
				return nil, err
			}
			return s.store.Review(courseID, reviewID)
		},
		"/instructors/{instructorID}": func(r *http.Request) (any, error) {
			id, err := pathID(r, "instructorID")
			if err != nil {
				return nil, err
			}
			return s.store.Instructor(id)
		},
	}
}

type resultKey struct{}

type lookupResult struct {
	value any
	err   error
}

func resultFrom(ctx context.Context) *lookupResult {
	return ctx.Value(resultKey{}).(*lookupResult)
}

// Lookup loads the entity a resource path (with optional query) names.
func (s *Service) Lookup(ctx context.Context, target string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil || req.URL.Path == "" || req.URL.Path[0] != '/' {
		return nil, &PathError{Path: target}
	}
	res := &lookupResult{}
	// Drop any enclosing chi route context so the lookup router matches afresh.
	ctx = context.WithValue(ctx, chi.RouteCtxKey, nil)
	req = req.WithContext(context.WithValue(ctx, resultKey{}, res))
	s.lookup.ServeHTTP(discard{}, req)
	if res.err != nil {
		return nil, res.err
	}
	return res.value, nil
}

// Render looks up target and returns its Siren JSON and ETag.
func (s *Service) Render(ctx context.Context, target string) ([]byte, string, error) {
	v, err := s.Lookup(ctx, target)
	if err != nil {
		return nil, "", err
	}
	return s.marshal(v)
}

func (s *Service) marshal(v any) ([]byte, string, error) {
	body, err := s.resolver.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return body, computeETag(body), nil
}

// computeETag is content-addressed: the same document always yields the same tag.
func computeETag(body []byte) string {
	return fmt.Sprintf(`"%x"`, sha256.Sum256(body))
}

func pathID(r *http.Request, name string) (types.ID, error) {
	id, err := types.ParseID(chi.URLParam(r, name))
	if err != nil {
		// Malformed ids cannot exist in the store.
		return "", fmt.Errorf("%s: %w", name, types.ErrNotFound)
	}
	return id, nil
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	if offset, err = intParam(q.Get("offset")); err != nil {
		return 0, 0, &catalog.FieldError{Field: "offset", Reason: "must be an integer"}
	}
	if limit, err = intParam(q.Get("limit")); err != nil {
		return 0, 0, &catalog.FieldError{Field: "limit", Reason: "must be an integer"}
	}
	return offset, limit, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// discard is the ResponseWriter for internal lookups; handlers only record
// their result in the request context.
type discard struct{}

func (discard) Header() http.Header         { return http.Header{} }
func (discard) Write(b []byte) (int, error) { return len(b), nil }
func (discard) WriteHeader(int)             {}

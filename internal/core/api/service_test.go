package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"google.golang.org/grpc/codes"

	"github.com/solatis/siren/internal/catalog"
	"github.com/solatis/siren/internal/core/auth"
	"github.com/solatis/siren/internal/core/db"
	"github.com/solatis/siren/internal/siren"
	"github.com/solatis/siren/internal/types"
)

type fixture struct {
	service *Service
	store   *catalog.Store
	queries *db.Queries
	course  *catalog.Course
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if _, err := db.MigrateUp(database); err != nil {
		t.Fatalf("db.MigrateUp() error = %v", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("db.LoadQueries() error = %v", err)
	}

	store := catalog.NewStore(queries, nil)
	resolver, err := catalog.NewResolver(nil)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	service, err := NewService(store, resolver, nil, opts...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	in, err := store.CreateInstructor("Grace Hopper", "grace@example.com")
	if err != nil {
		t.Fatalf("CreateInstructor() error = %v", err)
	}
	course, err := store.CreateCourse("Compilers", "From A-0 to COBOL", in.ID)
	if err != nil {
		t.Fatalf("CreateCourse() error = %v", err)
	}
	return &fixture{service: service, store: store, queries: queries, course: course}
}

func decodeDocument(t *testing.T, body []byte) *siren.Document {
	t.Helper()
	var doc siren.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode document: %v\n%s", err, body)
	}
	return &doc
}

func linkHref(doc *siren.Document, rel string) string {
	for _, l := range doc.Links {
		for _, r := range l.Rel {
			if r == rel {
				return l.Href
			}
		}
	}
	return ""
}

func TestNewService_RequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, nil, nil); err == nil {
		t.Errorf("NewService(nil) error = nil")
	}
}

func TestService_Lookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	courseURI := "/courses/" + f.course.ID.String()

	tests := []struct {
		name    string
		target  string
		wantErr error
		check   func(t *testing.T, v any)
	}{
		{
			name:   "course",
			target: courseURI,
			check: func(t *testing.T, v any) {
				if c, ok := v.(*catalog.Course); !ok || c.ID != f.course.ID {
					t.Errorf("Lookup() = %#v, want course %s", v, f.course.ID)
				}
			},
		},
		{
			name:   "course list with query",
			target: "/courses?status=open&limit=5",
			check: func(t *testing.T, v any) {
				l, ok := v.(*catalog.CourseList)
				if !ok || l.Limit != 5 || l.Status != catalog.StatusOpen || len(l.Courses) != 1 {
					t.Errorf("Lookup() = %#v, want one open course at limit 5", v)
				}
			},
		},
		{
			name:   "review page",
			target: courseURI + "/reviews",
			check: func(t *testing.T, v any) {
				if _, ok := v.(*catalog.ReviewPage); !ok {
					t.Errorf("Lookup() = %#v, want review page", v)
				}
			},
		},
		{"unknown route", "/teachers", types.ErrNotFound, nil},
		{"malformed id", "/courses/not-an-id", types.ErrNotFound, nil},
		{"missing course", "/courses/" + types.NewID().String(), types.ErrNotFound, nil},
		{"bad limit", "/courses?limit=many", types.ErrInvalidInput, nil},
		{"relative path", "courses", types.ErrInvalidInput, nil},
		{"empty path", "", types.ErrInvalidInput, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := f.service.Lookup(ctx, tt.target)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Lookup(%q) error = %v, want %v", tt.target, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.target, err)
			}
			tt.check(t, v)
		})
	}
}

func TestService_RenderETag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := "/courses/" + f.course.ID.String()

	body, etag, err := f.service.Render(ctx, target)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	_, again, _ := f.service.Render(ctx, target)
	if etag != again {
		t.Errorf("ETag changed between identical renders: %s vs %s", etag, again)
	}

	doc := decodeDocument(t, body)
	if got := linkHref(doc, "self"); got != target {
		t.Errorf("self = %q, want %q", got, target)
	}

	if _, err := f.store.AddReview(f.course.ID, catalog.NewReview{UserID: "u1", Body: "good"}); err != nil {
		t.Fatalf("AddReview() error = %v", err)
	}
	_, changed, _ := f.service.Render(ctx, target)
	if changed == etag {
		t.Errorf("ETag unchanged after adding a review")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   codes.Code
	}{
		{"not found", types.ErrNotFound, http.StatusNotFound, codes.NotFound},
		{"field error", &catalog.FieldError{Field: "body", Reason: "required"}, http.StatusBadRequest, codes.InvalidArgument},
		{"path error", &PathError{Path: "x"}, http.StatusBadRequest, codes.InvalidArgument},
		{"conflict", types.ErrConflict, http.StatusConflict, codes.FailedPrecondition},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, codes.DeadlineExceeded},
		{"revoked key", auth.ErrKeyRevoked, http.StatusForbidden, codes.PermissionDenied},
		{"missing key", auth.ErrMissingKey, http.StatusUnauthorized, codes.Unauthenticated},
		{"cycle", types.ErrCyclicGraph, http.StatusInternalServerError, codes.Internal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
			if got := GRPCCode(tt.err); got != tt.wantCode {
				t.Errorf("GRPCCode() = %v, want %v", got, tt.wantCode)
			}
		})
	}
}

func TestErrorDocument(t *testing.T) {
	doc := errorDocument(http.StatusBadRequest, &catalog.FieldError{Field: "body", Reason: "required"}, "/courses/x/reviews")
	if len(doc.Class) != 1 || doc.Class[0] != "error" {
		t.Errorf("class = %v, want [error]", doc.Class)
	}
	if field, _ := doc.Properties.Get("field"); field != "body" {
		t.Errorf("field = %v, want body", field)
	}
	if linkHref(doc, "self") != "/courses/x/reviews" {
		t.Errorf("self link missing")
	}

	internal := errorDocument(http.StatusInternalServerError, errors.New("secret detail"), "")
	if msg, _ := internal.Properties.Get("message"); msg != "Internal Server Error" {
		t.Errorf("message = %v, want detail hidden", msg)
	}
	if len(internal.Links) != 0 {
		t.Errorf("links = %v, want none", internal.Links)
	}
}

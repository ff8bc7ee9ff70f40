package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/solatis/siren/internal/types"
)

// RecentReviews is how many reviews a course embeds; the rest are reached
// through the reviews link.
const RecentReviews = 5

// Queries defines the named-query operations the store needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Select(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// FieldError reports one rejected action field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", types.ErrInvalidInput, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return types.ErrInvalidInput }

// Store loads and mutates catalog entities.
type Store struct {
	queries Queries
	logger  *zap.Logger
	now     func() time.Time
}

// NewStore creates a store over queries. A nil logger discards output.
func NewStore(queries Queries, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		queries: queries,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateInstructor inserts an instructor.
func (s *Store) CreateInstructor(name, email string) (*Instructor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &FieldError{Field: "name", Reason: "required"}
	}
	in := &Instructor{
		ID:        types.NewID(),
		Name:      name,
		Email:     strings.TrimSpace(email),
		CreatedAt: s.now(),
	}
	if _, err := s.queries.Exec("insert-instructor", in.ID, in.Name, in.Email, in.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert instructor: %w", err)
	}
	return in, nil
}

// Instructor loads one instructor.
func (s *Store) Instructor(id types.ID) (*Instructor, error) {
	var in Instructor
	if err := s.get("get-instructor", &in, id); err != nil {
		return nil, fmt.Errorf("instructor %s: %w", id, err)
	}
	return &in, nil
}

// CreateCourse inserts an open course. instructorID may be empty.
func (s *Store) CreateCourse(title, description string, instructorID types.ID) (*Course, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &FieldError{Field: "title", Reason: "required"}
	}

	var instructor any
	if instructorID != "" {
		if _, err := s.Instructor(instructorID); err != nil {
			return nil, err
		}
		instructor = instructorID
	}

	c := &Course{
		ID:           types.NewID(),
		Title:        title,
		Description:  strings.TrimSpace(description),
		Status:       StatusOpen,
		CreatedAt:    s.now(),
		InstructorID: instructorID,
	}
	if _, err := s.queries.Exec("insert-course", c.ID, c.Title, c.Description, c.Status, instructor, c.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

// Course loads a course with its instructor and most recent reviews.
// Embedded reviews point back at the returned course.
func (s *Store) Course(id types.ID) (*Course, error) {
	var c Course
	if err := s.get("get-course", &c, id); err != nil {
		return nil, fmt.Errorf("course %s: %w", id, err)
	}

	if c.InstructorID != "" {
		in, err := s.Instructor(c.InstructorID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		c.Instructor = in
	}

	if err := s.queries.Select("list-reviews", &c.Reviews, id, RecentReviews, 0); err != nil {
		return nil, fmt.Errorf("course %s reviews: %w", id, err)
	}
	for _, r := range c.Reviews {
		r.Course = &c
	}
	return &c, nil
}

// Courses returns one page of courses, optionally filtered by status.
func (s *Store) Courses(status string, offset, limit int) (*CourseList, error) {
	if status != "" && status != StatusOpen && status != StatusClosed {
		return nil, &FieldError{Field: "status", Reason: fmt.Sprintf("must be %s or %s", StatusOpen, StatusClosed)}
	}
	offset, limit = pageBounds(offset, limit)

	list := &CourseList{Status: status, Offset: offset, Limit: limit}
	if err := s.queries.Get("count-courses", &list.Total, status, status); err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	if err := s.queries.Select("list-courses", &list.Courses, status, status, limit, offset); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	list.Next, list.Prev = pageLinks(offset, limit, list.Total)
	return list, nil
}

// Review loads one review of a course, with its course attached.
func (s *Store) Review(courseID, id types.ID) (*Review, error) {
	c, err := s.courseOnly(courseID)
	if err != nil {
		return nil, err
	}
	var r Review
	if err := s.get("get-review", &r, courseID, id); err != nil {
		return nil, fmt.Errorf("review %s: %w", id, err)
	}
	r.Course = c
	return &r, nil
}

// Reviews returns one page of a course's reviews, newest first.
func (s *Store) Reviews(courseID types.ID, offset, limit int) (*ReviewPage, error) {
	c, err := s.courseOnly(courseID)
	if err != nil {
		return nil, err
	}
	offset, limit = pageBounds(offset, limit)

	page := &ReviewPage{CourseID: courseID, Offset: offset, Limit: limit, Total: c.ReviewCount}
	if err := s.queries.Select("list-reviews", &page.Reviews, courseID, limit, offset); err != nil {
		return nil, fmt.Errorf("course %s reviews: %w", courseID, err)
	}
	for _, r := range page.Reviews {
		r.Course = c
	}
	page.Next, page.Prev = pageLinks(offset, limit, page.Total)
	return page, nil
}

// AddReview validates and stores a review. The course must be open.
func (s *Store) AddReview(courseID types.ID, in NewReview) (*Review, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.courseOnly(courseID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, fmt.Errorf("course %s is %s: %w", courseID, c.Status, types.ErrConflict)
	}

	r := &Review{
		ID:        types.NewID(),
		CourseID:  courseID,
		UserID:    strings.TrimSpace(in.UserID),
		Body:      strings.TrimSpace(in.Body),
		CreatedAt: s.now(),
		Course:    c,
	}
	if _, err := s.queries.Exec("insert-review", r.ID, r.CourseID, r.UserID, r.Body, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	s.logger.Debug("review added",
		zap.String("course_id", courseID.String()),
		zap.String("review_id", r.ID.String()))
	return r, nil
}

// CloseCourse moves an open course to closed.
func (s *Store) CloseCourse(id types.ID) (*Course, error) {
	res, err := s.queries.Exec("update-course-status", StatusClosed, id, StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("close course %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either missing or already closed; the lookup tells which.
		c, err := s.courseOnly(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("course %s is %s: %w", id, c.Status, types.ErrConflict)
	}
	return s.Course(id)
}

// Validate checks an addReview submission against the declared fields.
func (in NewReview) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return &FieldError{Field: "userid", Reason: "required"}
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return &FieldError{Field: "body", Reason: "required"}
	}
	if n := utf8.RuneCountInString(body); n > types.MaxReviewBodyLength {
		return &FieldError{Field: "body", Reason: fmt.Sprintf("exceeds %d characters (got %d)", types.MaxReviewBodyLength, n)}
	}
	return nil
}

func (s *Store) courseOnly(id types.ID) (*Course, error) {
	var c Course
	if err := s.get("get-course", &c, id); err != nil {
		return nil, fmt.Errorf("course %s: %w", id, err)
	}
	return &c, nil
}

// get maps sql.ErrNoRows to types.ErrNotFound.
func (s *Store) get(name string, dest interface{}, args ...interface{}) error {
	err := s.queries.Get(name, dest, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	return err
}

// pageBounds clamps offset and limit to the service limits.
func pageBounds(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = types.DefaultPageSize
	case limit > types.MaxPageSize:
		limit = types.MaxPageSize
	}
	return offset, limit
}

// pageLinks returns the next and previous offsets, nil when there is none.
func pageLinks(offset, limit, total int) (next, prev *int) {
	if offset+limit < total {
		n := offset + limit
		next = &n
	}
	if offset > 0 {
		p := offset - limit
		if p < 0 {
			p = 0
		}
		prev = &p
	}
	return next, prev
}

// Package catalog is the course catalog served as Siren hypermedia.
//
// Courses and course lists declare their metadata in code (SirenMeta);
// reviews, instructors and review pages are described by the embedded
// entities.toml document. Both sources are chained by NewResolver.
package catalog

import (
	"time"

	"github.com/solatis/siren/internal/siren"
	"github.com/solatis/siren/internal/types"
)

// Course status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// FormType is the content type of catalog action submissions.
const FormType = "application/x-www-form-urlencoded"

// Instructor teaches courses. Always rendered linked from a course.
type Instructor struct {
	ID        types.ID  `json:"id" db:"instructor_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `siren:"email,include=nonempty" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Review is one user's review of a course. The back-reference to the course
// is linked so a course can embed its reviews.
type Review struct {
	ID        types.ID  `json:"id" db:"review_id"`
	CourseID  types.ID  `json:"courseId" db:"course_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Course    *Course   `siren:"course,linked" db:"-"`
}

// Course is the central catalog entity.
type Course struct {
	ID           types.ID    `json:"id" db:"course_id"`
	Title        string      `json:"title" db:"title"`
	Description  string      `siren:"description,include=nonempty" db:"description"`
	Status       string      `json:"status" db:"status"`
	ReviewCount  int         `json:"reviewCount" db:"review_count"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
	InstructorID types.ID    `json:"-" db:"instructor_id"`
	Instructor   *Instructor `siren:"instructor,linked" db:"-"`
	Reviews      []*Review   `siren:"reviews,embedded,rel=review" db:"-"`
}

// SirenMeta implements siren.Declarer.
func (Course) SirenMeta() siren.EntityMeta {
	return siren.EntityMeta{
		Class: []string{"course"},
		URI:   "/courses/{id}",
		Title: "{title}",
		Links: []siren.LinkMeta{
			{Rel: []string{"reviews"}, Href: "/courses/{id}/reviews", Title: "Reviews"},
			{Rel: []string{"collection", "up"}, Href: "/courses"},
		},
		Actions: []siren.ActionMeta{
			{
				Name:   "addReview",
				Title:  "Add Review",
				Method: "POST",
				Href:   "/courses/{id}/reviews",
				Type:   FormType,
				Fields: []siren.ActionFieldMeta{
					{Name: "userid", Type: "text", Title: "User ID", Required: true},
					{Name: "body", Type: "text", Title: "Review", Required: true, MaxLength: types.MaxReviewBodyLength},
				},
			},
			{
				Name:      "close",
				Title:     "Close Course",
				Method:    "POST",
				Href:      "/courses/{id}/close",
				Condition: &siren.Condition{Field: "status", Op: siren.OpEq, Value: StatusOpen},
			},
		},
	}
}

// ReviewPage is one page of a course's reviews.
type ReviewPage struct {
	CourseID types.ID  `json:"courseId"`
	Offset   int       `json:"offset"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
	Next     *int      `json:"-"`
	Prev     *int      `json:"-"`
	Reviews  []*Review `siren:"reviews,embedded,rel=item"`
}

// CourseList is one page of the course collection. Items are linked.
type CourseList struct {
	Status  string    `siren:"status,include=nonempty"`
	Offset  int       `json:"offset"`
	Limit   int       `json:"limit"`
	Total   int       `json:"total"`
	Next    *int      `json:"-"`
	Prev    *int      `json:"-"`
	Courses []*Course `siren:"courses,linked,rel=item"`
}

// SirenMeta implements siren.Declarer.
func (CourseList) SirenMeta() siren.EntityMeta {
	return siren.EntityMeta{
		Class: []string{"courses", "collection"},
		URI:   "/courses?status={status}&offset={offset}&limit={limit}",
		Title: "Courses",
		Links: []siren.LinkMeta{
			{
				Rel:       []string{"next"},
				Href:      "/courses?status={status}&offset={next}&limit={limit}",
				Condition: &siren.Condition{Field: "next", Op: siren.OpNotNull},
			},
			{
				Rel:       []string{"prev"},
				Href:      "/courses?status={status}&offset={prev}&limit={limit}",
				Condition: &siren.Condition{Field: "prev", Op: siren.OpNotNull},
			},
		},
		Actions: []siren.ActionMeta{
			{
				Name:   "filter",
				Title:  "Filter by status",
				Method: "GET",
				Href:   "/courses",
				Fields: []siren.ActionFieldMeta{
					{Name: "status", Type: "text", Options: []string{StatusOpen, StatusClosed}},
					{Name: "limit", Type: "number", Value: "{limit}"},
				},
			},
		},
	}
}

// NewReview is an addReview submission.
type NewReview struct {
	UserID string
	Body   string
}

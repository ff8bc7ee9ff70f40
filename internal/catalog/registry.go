package catalog

import (
	_ "embed"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/solatis/siren/internal/siren"
)

//go:embed entities.toml
var entitiesTOML []byte

// declaredNames binds the type names used in entities.toml.
var declaredNames = map[string]reflect.Type{
	"instructor":  reflect.TypeOf(Instructor{}),
	"review":      reflect.TypeOf(Review{}),
	"review_page": reflect.TypeOf(ReviewPage{}),
}

// NewRegistry returns a registry loaded from the embedded metadata document.
func NewRegistry() (*siren.Registry, error) {
	reg := siren.NewRegistry()
	for name, t := range declaredNames {
		if err := reg.Name(name, t); err != nil {
			return nil, err
		}
	}
	if err := siren.LoadTOML(entitiesTOML, reg); err != nil {
		return nil, fmt.Errorf("catalog metadata: %w", err)
	}
	return reg, nil
}

// NewResolver returns a resolver for catalog entities. Declarer metadata
// (Course, CourseList) takes precedence over the embedded document.
func NewResolver(logger *zap.Logger, opts ...siren.Option) (*siren.Resolver, error) {
	reg, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	opts = append([]siren.Option{siren.WithSource(reg), siren.WithLogger(logger)}, opts...)
	return siren.New(opts...), nil
}

package siren

import (
	"reflect"

	"go.uber.org/zap"
)

/*
 * Link and action binding.
 *
 * Materializes declared link/action descriptors against one instance:
 *   1. Evaluate the condition, if any; false omits the item (no error)
 *   2. Expand the href template
 *   3. For actions, copy field declarations verbatim and expand templated
 *      default values
 *
 * A failed expansion in step 2 or 3 omits the item when it is declared
 * optional and fails with the TemplateResolutionError otherwise. Omission is
 * reported as a nil result with a nil error.
 */

// BindLink binds desc to instance using Declarer metadata for nested lookups.
func BindLink(desc *LinkDescriptor, instance any) (*Link, error) {
	return defaultCache.bindLink(desc, scope{value: reflect.ValueOf(instance)})
}

// BindAction binds desc to instance using Declarer metadata for nested lookups.
func BindAction(desc *ActionDescriptor, instance any) (*Action, error) {
	return defaultCache.bindAction(desc, scope{value: reflect.ValueOf(instance)})
}

func (c *DescriptorCache) bindLink(desc *LinkDescriptor, s scope) (*Link, error) {
	if !c.conditionHolds(desc.Condition, desc.condPath, s) {
		return nil, nil
	}
	href, err := c.expand(desc.Href, s)
	if err != nil {
		if desc.Optional {
			c.logger.Debug("optional link omitted",
				zap.Strings("rel", desc.Rel),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	return &Link{
		Rel:   desc.Rel,
		Href:  href,
		Title: desc.Title,
		Class: desc.Class,
		Type:  desc.Type,
	}, nil
}

func (c *DescriptorCache) bindAction(desc *ActionDescriptor, s scope) (*Action, error) {
	if !c.conditionHolds(desc.Condition, desc.condPath, s) {
		return nil, nil
	}
	omit := func(err error) (*Action, error) {
		if desc.Optional {
			c.logger.Debug("optional action omitted",
				zap.String("action", desc.Name),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	href, err := c.expand(desc.Href, s)
	if err != nil {
		return omit(err)
	}

	action := &Action{
		Name:   desc.Name,
		Class:  desc.Class,
		Method: desc.Method,
		Href:   href,
		Title:  desc.Title,
		Type:   desc.Type,
	}
	if len(desc.Fields) > 0 {
		action.Fields = make([]ActionField, len(desc.Fields))
	}
	for i := range desc.Fields {
		fd := &desc.Fields[i]
		field := ActionField{
			Name:        fd.Name,
			Type:        fd.Type,
			Title:       fd.Title,
			Value:       fd.Value,
			Placeholder: fd.Placeholder,
			Pattern:     fd.Pattern,
			Required:    fd.Required,
			MaxLength:   fd.MaxLength,
			Min:         fd.Min,
			Max:         fd.Max,
			Step:        fd.Step,
			Options:     fd.Options,
		}
		if fd.Default != nil {
			value, err := c.expand(fd.Default, s)
			if err != nil {
				return omit(err)
			}
			field.Value = value
		}
		action.Fields[i] = field
	}
	return action, nil
}

// conditionHolds evaluates cond against the scope. An unresolvable field
// counts as nil.
func (c *DescriptorCache) conditionHolds(cond *Condition, path []string, s scope) bool {
	if cond == nil {
		return true
	}
	if path == nil {
		var err error
		if path, err = parsePlaceholder(cond.Field); err != nil {
			return false
		}
	}
	var value any
	if v, err := c.lookup(path, s); err == nil && !isNilValue(v) {
		if iv, ok := indirectValue(v); ok && iv.CanInterface() {
			value = iv.Interface()
		}
	}
	target := cond.Value
	if cond.Op == OpIn {
		target = cond.Values
	}
	return Compare(cond.Op, value, target)
}

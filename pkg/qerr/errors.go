// Package qerr defines the error taxonomy of the query engine. Every
// error carries a stable code and structured details that the engine
// renders verbatim into the failure envelope. Anything outside this
// taxonomy is reported with the reserved code "UNKNOWN" and a fixed
// message, never with internal diagnostic text.
package qerr

import (
	"fmt"
	"strings"
)

// Stable error codes rendered into failure envelopes.
const (
	CodeInvalidDirective     = "INVALID_DIRECTIVE"
	CodeUnknownAttribute     = "UNKNOWN_ATTRIBUTE"
	CodeNotARelation         = "NOT_A_RELATION"
	CodePathDepthExceeded    = "PATH_DEPTH_EXCEEDED"
	CodeUnsupportedPredicate = "UNSUPPORTED_PREDICATE"

	// CodeUnknown is reserved for unanticipated failures.
	CodeUnknown = "UNKNOWN"
)

// Error is implemented by every error in the taxonomy.
type Error interface {
	error
	// Code returns the stable error code.
	Code() string
	// Details returns the structured fields specific to the error kind.
	Details() map[string]interface{}
}

// InvalidDirectiveError is returned when a directive value is malformed
// or a directive is used in an invalid position (e.g. sorting after
// pagination).
type InvalidDirectiveError struct {
	Directive string
	Reason    string
}

func (e *InvalidDirectiveError) Error() string {
	return fmt.Sprintf("invalid directive %q: %s", e.Directive, e.Reason)
}

// Code implements Error.
func (e *InvalidDirectiveError) Code() string { return CodeInvalidDirective }

// Details implements Error.
func (e *InvalidDirectiveError) Details() map[string]interface{} {
	return map[string]interface{}{"directive": e.Directive}
}

// UnknownAttributeError is returned when a path segment does not name an
// attribute visible to the current caller. Censored and nonexistent
// attributes are deliberately indistinguishable.
type UnknownAttributeError struct {
	Entity    string
	Attribute string

	// ValidAttributes lists the attributes visible to the caller,
	// already passed through the visibility filter.
	ValidAttributes []string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute %q in entity %q, valid attributes are [%s]",
		e.Attribute, e.Entity, strings.Join(e.ValidAttributes, ", "))
}

// Code implements Error.
func (e *UnknownAttributeError) Code() string { return CodeUnknownAttribute }

// Details implements Error.
func (e *UnknownAttributeError) Details() map[string]interface{} {
	return map[string]interface{}{
		"unknown":          e.Attribute,
		"valid_attributes": e.ValidAttributes,
	}
}

// NotARelationError is returned when a path traverses an attribute that
// is not a relation.
type NotARelationError struct {
	Entity    string
	Attribute string

	// Relations lists the relation attributes visible to the caller.
	Relations []string
}

func (e *NotARelationError) Error() string {
	return fmt.Sprintf("attribute %q in entity %q is not a relation, relations are [%s]",
		e.Attribute, e.Entity, strings.Join(e.Relations, ", "))
}

// Code implements Error.
func (e *NotARelationError) Code() string { return CodeNotARelation }

// Details implements Error.
func (e *NotARelationError) Details() map[string]interface{} {
	return map[string]interface{}{
		"entity":    e.Entity,
		"attribute": e.Attribute,
		"relations": e.Relations,
	}
}

// PathDepthExceededError is returned when a path traverses more
// relations than the configured maximum.
type PathDepthExceededError struct {
	Path     string
	MaxDepth int
}

func (e *PathDepthExceededError) Error() string {
	return fmt.Sprintf("path %q exceeds the maximum traversal depth of %d", e.Path, e.MaxDepth)
}

// Code implements Error.
func (e *PathDepthExceededError) Code() string { return CodePathDepthExceeded }

// Details implements Error.
func (e *PathDepthExceededError) Details() map[string]interface{} {
	return map[string]interface{}{
		"path":      e.Path,
		"max_depth": e.MaxDepth,
	}
}

// UnsupportedPredicateError is returned when a search modifier has no
// operator defined for the inferred type of the literal.
type UnsupportedPredicateError struct {
	Modifier string
	Value    interface{}
	Type     string
}

func (e *UnsupportedPredicateError) Error() string {
	return fmt.Sprintf("search modifier %q cannot be used on type %q (type was inferred from value %v)",
		e.Modifier, e.Type, e.Value)
}

// Code implements Error.
func (e *UnsupportedPredicateError) Code() string { return CodeUnsupportedPredicate }

// Details implements Error.
func (e *UnsupportedPredicateError) Details() map[string]interface{} {
	return map[string]interface{}{
		"modifier": e.Modifier,
		"value":    e.Value,
		"type":     e.Type,
	}
}

// Package sift compiles flat string parameters into an execution plan
// over a declared relational schema, runs the plan and serializes the
// result into nested rows. Filtering, sorting, pagination, computed
// aggregates, relation expansion and field selection are all expressed
// through the parameters, so one generic endpoint serves any entity.
package sift

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siftql/sift/internal/aggregate"
	"github.com/siftql/sift/internal/censor"
	"github.com/siftql/sift/internal/fieldpath"
	"github.com/siftql/sift/internal/filter"
	"github.com/siftql/sift/internal/join"
	"github.com/siftql/sift/pkg/qerr"
	"github.com/siftql/sift/pkg/storage"
)

// DirectivePrefix marks parameter keys that address the pipeline
// instead of an attribute.
const DirectivePrefix = "c:"

// Query is the mutable state of one evaluation. It is owned by a
// single goroutine and discarded after Evaluate returns.
type Query struct {
	store    *storage.Store
	root     string
	params   Params
	settings Settings
	logger   *zap.Logger

	user     interface{}
	perms    censor.PermissionChecker
	public   map[string][]string
	private  map[string][]string
	funcs    aggregate.Registry
	table    *filter.Table
	pipeline []Command

	censor    *censor.Censor
	resolver  *fieldpath.Resolver
	arbitrary map[string]bool
	qs        *storage.Queryset
	joinc     *join.Compiler
	tree      *join.Tree
	env       *Envelope

	caseSensitive bool
	sliced        bool
	limited       bool
	timed         bool
	show          []string
	hide          []string
}

// Option customizes a query before evaluation.
type Option func(*Query)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(q *Query) { q.settings = s }
}

// WithLogger sets the logger used for internal diagnostics. Failures
// of the generic fallback path are only ever visible here.
func WithLogger(l *zap.Logger) Option {
	return func(q *Query) { q.logger = l }
}

// WithPublicFields declares, per entity, the only attributes visible
// to this query. Declaring an entity here supersedes every private
// list for that entity.
func WithPublicFields(fields map[string][]string) Option {
	return func(q *Query) { q.public = fields }
}

// WithPrivateFields hides attributes for this query, on top of the
// process-wide private list.
func WithPrivateFields(fields map[string][]string) Option {
	return func(q *Query) { q.private = fields }
}

// WithUser attaches the caller identity consulted by the permission
// checker.
func WithUser(user interface{}) Option {
	return func(q *Query) { q.user = user }
}

// WithPermissions enables permission-based censoring of relations.
func WithPermissions(p censor.PermissionChecker) Option {
	return func(q *Query) { q.perms = p }
}

// WithAggregates replaces the aggregate function registry.
func WithAggregates(r aggregate.Registry) Option {
	return func(q *Query) { q.funcs = r }
}

// WithFilterTable replaces the modifier to operator table.
func WithFilterTable(t *filter.Table) Option {
	return func(q *Query) { q.table = t }
}

// WithPipeline replaces the command pipeline. The stages run in the
// order given.
func WithPipeline(pipeline []Command) Option {
	return func(q *Query) { q.pipeline = pipeline }
}

// New prepares a query over the given root entity. Nothing is
// validated or executed until Evaluate.
func New(store *storage.Store, entity string, params Params, opts ...Option) *Query {
	q := &Query{
		store:         store,
		root:          entity,
		params:        params,
		settings:      DefaultSettings(),
		logger:        zap.NewNop(),
		funcs:         aggregate.DefaultRegistry(),
		table:         filter.DefaultTable(),
		pipeline:      DefaultPipeline(),
		arbitrary:     make(map[string]bool),
		caseSensitive: true,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Evaluate runs the pipeline and always returns an envelope: a
// successful one with the requested sections, or a failure one built
// from the first error. Unanticipated failures are logged and rendered
// with a generic code; their text never reaches the envelope.
func (q *Query) Evaluate(ctx context.Context) *Envelope {
	start := time.Now()
	q.prepare()

	err := q.run(ctx)
	if err != nil {
		var qe qerr.Error
		if errors.As(err, &qe) {
			q.logger.Debug("query rejected",
				zap.String("entity", q.root),
				zap.String("code", qe.Code()),
				zap.Error(err))
			return Failure(qe.Code(), qe.Error(), qe.Details())
		}
		q.logger.Error("query evaluation failed",
			zap.String("entity", q.root),
			zap.Error(err))
		return Failure(qerr.CodeUnknown, "an unexpected error occurred", nil)
	}

	if q.timed {
		q.env.Set("time", time.Since(start).Seconds())
	}
	return q.env
}

// SetCaseSensitive switches string comparison for predicates compiled
// after the call.
func (q *Query) SetCaseSensitive(sensitive bool) {
	q.caseSensitive = sensitive
	if q.joinc != nil {
		q.joinc.Case = sensitive
	}
}

// prepare builds the per-evaluation collaborators.
func (q *Query) prepare() {
	q.censor = censor.New(q.store.Registry(), q.public, q.private,
		q.settings.PrivateFields, q.user, q.perms)
	q.resolver = &fieldpath.Resolver{
		Intro:     q.store.Registry(),
		Censor:    q.censor,
		Arbitrary: q.arbitrary,
		Sep:       storage.PathSep,
		MaxDepth:  q.settings.MaxDepth,
	}
	q.qs = q.store.Source(q.root)
	q.joinc = &join.Compiler{
		Intro:    q.store.Registry(),
		Censor:   q.censor,
		Resolver: q.resolver,
		Table:    q.table,
		FieldSep: q.settings.FieldSep,
		ValueSep: q.settings.ValueSep,
		Case:     q.caseSensitive,
	}
	q.tree = join.NewTree(q.joinc, q.root)
	q.env = Success()
}

func (q *Query) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic during query evaluation",
				zap.String("entity", q.root),
				zap.Any("panic", r))
			err = errors.New("evaluation panicked")
		}
	}()

	if err := q.checkDirectives(); err != nil {
		return err
	}
	for i := range q.pipeline {
		cmd := &q.pipeline[i]
		if cmd.Terminal {
			if err := cmd.Run(ctx, q, "", nil); err != nil {
				return err
			}
			continue
		}
		for _, p := range q.params {
			if cmd.Match != nil && cmd.Match(p.Key) {
				if err := cmd.Run(ctx, q, p.Key, p.Values); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// checkDirectives rejects reserved keys no pipeline stage claims.
func (q *Query) checkDirectives() error {
	for _, p := range q.params {
		if !strings.HasPrefix(p.Key, DirectivePrefix) {
			continue
		}
		claimed := false
		for i := range q.pipeline {
			if m := q.pipeline[i].Match; m != nil && m(p.Key) {
				claimed = true
				break
			}
		}
		if !claimed {
			return &qerr.InvalidDirectiveError{Directive: p.Key, Reason: "unknown directive"}
		}
	}
	return nil
}

func (q *Query) paramValues(key string) []string {
	for _, p := range q.params {
		if p.Key == key {
			return p.Values
		}
	}
	return nil
}

func (q *Query) annotationCompiler() *aggregate.Compiler {
	return &aggregate.Compiler{
		Resolver: q.resolver,
		Root:     q.root,
		Funcs:    q.funcs,
		Table:    q.table,
		FieldSep: q.settings.FieldSep,
		ValueSep: q.settings.ValueSep,
		Case:     q.caseSensitive,
	}
}

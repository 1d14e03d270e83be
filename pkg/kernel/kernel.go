// Package kernel wires the Analyzer/Planner/Executor (spec.md §2) into
// one entry point: Execute accepts a single StatementAST and dispatches
// it across the GraphStore, Registry, PatternMatcher, MutationEngine,
// RuleEngine, ConstraintChecker, and TransactionManager this repository's
// other packages implement, producing the Result/Warning pair spec.md §6
// and §7 describe.
//
// Mirrors nornicdb's pkg/nornicdb.DB: a mutex-guarded struct tying
// together storage, a Cypher executor, and auxiliary services behind one
// `Open`/`Close`/method-per-operation API, generalized here from a fixed
// set of domain methods (Store/Recall/Cypher/Link/...) to one dispatcher
// over the statement kinds spec.md §6 enumerates.
package kernel

import (
	"context"
	"errors"
	"time"

	"github.com/mew-lang/mew/internal/klog"
	"github.com/mew-lang/mew/pkg/ast"
	"github.com/mew-lang/mew/pkg/compiler"
	"github.com/mew-lang/mew/pkg/config"
	"github.com/mew-lang/mew/pkg/kernelerr"
	"github.com/mew-lang/mew/pkg/match"
	"github.com/mew-lang/mew/pkg/registry"
	"github.com/mew-lang/mew/pkg/store"
	"github.com/mew-lang/mew/pkg/txn"
	"github.com/mew-lang/mew/pkg/value"
)

// ErrClosed is returned by any operation on a Kernel after Close.
var ErrClosed = errors.New("kernel: closed")

// Kernel is the top-level object a surface layer (cmd/mew, a future REPL
// or HTTP front door) drives: one ontology's compiled Registry, the Store
// it describes, and every engine layered over them.
type Kernel struct {
	closed bool

	Config   *config.Config
	Store    *store.Store
	Registry *registry.Registry
	Matcher  *match.Matcher
	Txn      *txn.Manager

	log *klog.Logger
}

// Open compiles ontology and constructs a Kernel ready to accept
// statements. cfg may be nil, in which case config.Default() applies.
func Open(ontology *ast.OntologyAST, cfg *config.Config) (*Kernel, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := store.New()
	r := registry.New(cfg.Cache.PlanCacheSize)
	if err := compiler.CompileAndPublish(r, ontology); err != nil {
		return nil, err
	}

	m := match.New(s, r, cfg.Match)
	mgr := txn.New(s, r, m, cfg.Rules)

	return &Kernel{
		Config:   cfg,
		Store:    s,
		Registry: r,
		Matcher:  m,
		Txn:      mgr,
		log:      klog.New(levelFromString(cfg.Logging.Level)),
	}, nil
}

func levelFromString(s string) klog.Level {
	switch s {
	case "debug":
		return klog.LevelDebug
	case "warn":
		return klog.LevelWarn
	case "error":
		return klog.LevelError
	case "silent":
		return klog.LevelSilent
	default:
		return klog.LevelInfo
	}
}

// Close marks the Kernel unusable. The Store itself holds no external
// resources (persistence is out of scope, spec.md §1), so Close only
// guards against further use — matching nornicdb's closed-flag idiom
// in pkg/nornicdb.DB without needing a real resource teardown.
func (k *Kernel) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	return nil
}

// Stats summarizes the current store contents, the way nornicdb's
// DB.Stats() reports memory counts.
type Stats struct {
	TypeCounts map[string]int
	Generation uint64
}

// Stats reports per-type entity counts and the registry's current
// generation (SPEC_FULL.md's plan-cache key, spec.md §4.2).
func (k *Kernel) Stats() Stats {
	counts := make(map[string]int)
	for _, t := range k.Registry.AllTypes() {
		counts[t.Name] = k.Store.Count(t.Name)
	}
	for _, e := range k.Registry.AllEdges() {
		counts[e.Name] = k.Store.Count(e.Name)
	}
	return Stats{TypeCounts: counts, Generation: k.Registry.Generation()}
}

// Execute dispatches one statement (spec.md §6) and returns its Result
// plus any accumulated Warnings. A statement outside an explicit BEGIN is
// auto-committed (spec.md §4.8 "Modes"): the kernel opens an implicit
// transaction, executes the statement, and commits it before returning.
func (k *Kernel) Execute(ctx context.Context, stmt ast.StatementAST, params map[string]value.Value) (*ExecOutcome, error) {
	if k.closed {
		return nil, ErrClosed
	}
	if stmt.DeadlineMillis > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(stmt.DeadlineMillis)*time.Millisecond)
		defer cancel()
	} else if k.Config != nil && k.Config.Statement.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Config.Statement.DefaultTimeout)
		defer cancel()
	}

	switch stmt.Kind {
	case ast.StmtBegin:
		return k.execBegin(stmt)
	case ast.StmtCommit:
		return k.execCommit(ctx, params)
	case ast.StmtRollback:
		return k.execRollback()
	case ast.StmtSavepoint:
		return k.execSavepoint(stmt)
	case ast.StmtRollbackTo:
		return k.execRollbackTo(stmt)
	case ast.StmtMatch:
		return k.execMatch(ctx, stmt, params)
	case ast.StmtMutation:
		return k.execMutation(ctx, stmt, params)
	case ast.StmtTrigger:
		return k.execTrigger(ctx, stmt, params)
	case ast.StmtShowTypes:
		return &ExecOutcome{Result: queryResult(k.runShowTypes())}, nil
	case ast.StmtShowEdges:
		return &ExecOutcome{Result: queryResult(k.runShowEdges())}, nil
	case ast.StmtShowConstraints:
		return &ExecOutcome{Result: queryResult(k.runShowConstraints())}, nil
	case ast.StmtShowRules:
		return &ExecOutcome{Result: queryResult(k.runShowRules())}, nil
	case ast.StmtInspect:
		q, err := k.runInspect(stmt.InspectID)
		if err != nil {
			return nil, err
		}
		return &ExecOutcome{Result: queryResult(q)}, nil
	case ast.StmtCreateIndex, ast.StmtDropIndex:
		if err := k.runIndexStatement(stmt); err != nil {
			return nil, err
		}
		k.log.Debugf("%s %s.%s acknowledged (attributes are always indexed)", stmt.Kind, stmt.IndexType, stmt.IndexAttr)
		return &ExecOutcome{Result: emptyResult()}, nil
	case ast.StmtExplain:
		return k.execExplain(stmt)
	case ast.StmtProfile:
		return k.execProfile(ctx, stmt, params)
	default:
		return nil, kernelerr.New(kernelerr.AnalysisError, "unrecognized statement kind %q", stmt.Kind)
	}
}


package filters

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
)

// chunkEnv is the environment an expression predicate evaluates against.
type chunkEnv struct {
	ID      string   `expr:"id"`
	Tags    []string `expr:"tags"`
	Rate    int64    `expr:"rate"`
	Seconds float64  `expr:"seconds"`
	Len     int      `expr:"len"`
}

func newChunkEnv(c datablock.Chunk) chunkEnv {
	return chunkEnv{
		ID:      c.ID,
		Tags:    c.Tags.Strings(),
		Rate:    c.Rate,
		Seconds: c.Offset.Seconds(),
		Len:     c.Data.Len(),
	}
}

// Expression compiles an expr-lang boolean expression over the fields
// id, tags, rate, seconds, and len, returning a predicate that runs it
// per chunk. Compilation errors (including type errors and unknown
// identifiers) surface at construction, not during the traversal.
//
//	rate > 0 && "samples" in tags
//	id matches "^pcm_" && seconds < 10.0
func Expression(src string) (Predicate, error) {
	prog, err := expr.Compile(src, expr.Env(chunkEnv{}), expr.AsBool())
	if err != nil {
		return nil, errors.WrapInvalid(err, "FilterExpression", "Compile", "compile expression "+src)
	}
	return exprPredicate(prog), nil
}

// MustExpression is Expression for statically known sources, panicking
// on compile errors.
func MustExpression(src string) Predicate {
	p, err := Expression(src)
	if err != nil {
		panic(err)
	}
	return p
}

func exprPredicate(prog *vm.Program) Predicate {
	return func(c datablock.Chunk) bool {
		out, err := expr.Run(prog, newChunkEnv(c))
		if err != nil {
			return false
		}
		b, ok := out.(bool)
		return ok && b
	}
}

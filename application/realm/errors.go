package realm

import (
	"context"
	"errors"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	wazeroadapter "github.com/drses/frozen-realms-shim/infrastructure/wazero"
	"github.com/drses/frozen-realms-shim/internal/script"
)

// Classify maps any failure of a confined evaluation onto an
// EvaluationError.
func Classify(ctx context.Context, err error) *domainerrors.EvaluationError {
	var evalErr *domainerrors.EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr
	}
	out := &domainerrors.EvaluationError{Err: err, Kind: domainerrors.EvalInternal, Message: err.Error()}

	var (
		syntaxErr *script.SyntaxError
		thrown    *graph.ThrownError
		exception *graph.Exception
		trap      *host.TrapError
		importErr *wazeroadapter.ImportError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		out.Kind = domainerrors.EvalCanceled
	case errors.As(err, &syntaxErr):
		out.Kind = domainerrors.EvalSyntax
	case errors.Is(err, host.ErrInvalidModule):
		out.Kind = domainerrors.EvalSyntax
	case errors.Is(err, host.ErrMissingImport), errors.Is(err, host.ErrMissingExport):
		out.Kind = domainerrors.EvalBinding
	case errors.As(err, &importErr), errors.As(err, &trap):
		out.Kind = domainerrors.EvalThrown
	case errors.As(err, &thrown):
		out.Kind = kindFor(string(thrown.Kind))
		out.Message = thrown.Error()
	case errors.As(err, &exception):
		out.Kind = domainerrors.EvalThrown
		if name, _, ok := graph.ErrorName(exception.Value); ok {
			out.Kind = kindFor(name)
		}
		out.Message = "uncaught " + graph.Describe(exception.Value)
	}
	return out
}

func kindFor(name string) domainerrors.EvaluationKind {
	switch graph.ErrorKind(name) {
	case graph.KindReferenceError:
		return domainerrors.EvalReference
	case graph.KindTypeError:
		return domainerrors.EvalType
	case graph.KindSyntaxError:
		return domainerrors.EvalSyntax
	default:
		return domainerrors.EvalThrown
	}
}

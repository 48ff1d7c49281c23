package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/wordloom/internal/rules"
	"github.com/solatis/wordloom/internal/types"
)

// invalidArgument lists sentinels caused by the request's grammar or input.
var invalidArgument = []error{
	types.ErrEmptyRuleName,
	types.ErrEmptyValues,
	types.ErrWeightCount,
	types.ErrNegativeWeight,
	types.ErrWeightSum,
	types.ErrInvalidRange,
	types.ErrInvalidStep,
	types.ErrInvalidDecimals,
	types.ErrMissingTemplateVariable,
	types.ErrMultipleDefaults,
	types.ErrInvalidCondition,
	types.ErrInvalidModifier,
	types.ErrInvalidMaxDepth,
	types.ErrInvalidGrammar,
	types.ErrUnknownModifier,
	types.ErrInvalidOperator,
	types.ErrCoercionFailed,
	types.ErrPathTooDeep,
	types.ErrFieldNotFound,
	types.ErrRuleNotFound,
}

// failedPrecondition lists sentinels raised while expanding a valid grammar.
var failedPrecondition = []error{
	types.ErrRecursionLimit,
	types.ErrFunctionRule,
	types.ErrNoConditionMatched,
}

// statusCode maps an error to its gRPC code.
// Validation/registration errors map to INVALID_ARGUMENT.
// Expansion failures map to FAILED_PRECONDITION.
// Unknown grammars map to NOT_FOUND.
// Database errors map to UNAVAILABLE.
// Context timeouts map to DEADLINE_EXCEEDED.
func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, types.ErrGrammarNotFound):
		return codes.NotFound
	case errors.Is(err, types.ErrStorage):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	for _, target := range failedPrecondition {
		if errors.Is(err, target) {
			return codes.FailedPrecondition
		}
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return codes.InvalidArgument
		}
	}
	return codes.Internal
}

// toStatus converts err to a gRPC status error. Expansion failures carry the
// engine's hints when an engine is available.
func toStatus(err error, e *rules.Engine, input string) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := statusCode(err)
	msg := err.Error()
	if e != nil && code == codes.FailedPrecondition {
		msg = e.HelpfulError(err, input)
	}
	return status.Error(code, msg)
}

package types

import "errors"

// Sentinel errors for rule registration.
var (
	// ErrEmptyRuleName indicates a rule was registered without a name.
	ErrEmptyRuleName = errors.New("rule name must be a non-empty string")

	// ErrEmptyValues indicates a rule requires at least one value.
	ErrEmptyValues = errors.New("rule requires at least one value")

	// ErrWeightCount indicates values and weights have different lengths.
	ErrWeightCount = errors.New("values and weights must have the same length")

	// ErrNegativeWeight indicates a weight below zero.
	ErrNegativeWeight = errors.New("weights must be non-negative")

	// ErrWeightSum indicates weights do not sum to 1.0 within WeightTolerance.
	ErrWeightSum = errors.New("weights must sum to 1.0")

	// ErrInvalidRange indicates min is not strictly below max.
	ErrInvalidRange = errors.New("range min must be less than max")

	// ErrInvalidStep indicates a non-positive range step.
	ErrInvalidStep = errors.New("range step must be positive")

	// ErrInvalidDecimals indicates a negative range precision.
	ErrInvalidDecimals = errors.New("range decimals must be non-negative")

	// ErrMissingTemplateVariable indicates a template token without a local variable.
	ErrMissingTemplateVariable = errors.New("template variable not defined")

	// ErrMultipleDefaults indicates a conditional rule with more than one default record.
	ErrMultipleDefaults = errors.New("conditional rule has more than one default")

	// ErrInvalidCondition indicates a malformed conditional record.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrNilGenerator indicates a function rule without a generator.
	ErrNilGenerator = errors.New("function rule requires a generator")

	// ErrInvalidModifier indicates a modifier without a name or transform.
	ErrInvalidModifier = errors.New("invalid modifier")
)

// Sentinel errors for parsing and analysis.
var (
	// ErrRecursionLimit indicates expansion exceeded the configured max depth.
	ErrRecursionLimit = errors.New("maximum recursion depth exceeded (circular or overly deep references)")

	// ErrFunctionRule wraps a failure raised by a function rule generator.
	ErrFunctionRule = errors.New("function rule failed")

	// ErrNoConditionMatched indicates a conditional rule matched no branch and has no default.
	ErrNoConditionMatched = errors.New("no condition matched and no default provided")

	// ErrRuleNotFound indicates an analysis was requested for an unknown rule.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidMaxDepth indicates a max depth below MinMaxDepth.
	ErrInvalidMaxDepth = errors.New("max depth must be at least 1")

	// ErrEmptyChoice indicates a random choice over an empty list.
	ErrEmptyChoice = errors.New("cannot choose from an empty list")

	// ErrLengthMismatch indicates values and cumulative weights differ in length.
	ErrLengthMismatch = errors.New("values and cumulative weights length mismatch")

	// ErrInvalidGrammar indicates validation found missing, circular or empty rules.
	ErrInvalidGrammar = errors.New("grammar validation failed")
)

// Sentinel errors for grammar documents and storage.
var (
	// ErrUnknownModifier indicates a document references an unregistered built-in modifier.
	ErrUnknownModifier = errors.New("unknown modifier")

	// ErrInvalidOperator indicates an unknown condition operator.
	ErrInvalidOperator = errors.New("invalid condition operator")

	// ErrCoercionFailed indicates a document value could not be converted to text.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrPathTooDeep indicates a document path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("document path exceeds maximum depth")

	// ErrFieldNotFound indicates a document path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")

	// ErrGrammarNotFound indicates a stored grammar does not exist.
	ErrGrammarNotFound = errors.New("grammar not found")

	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("storage error")
)

// Package types provides domain models shared across wordloom components.
//
// Zero-dependency design: types.go, rules.go and errors.go use only the
// standard library so the grammar loader, the SQL store and the gRPC layer can
// share definitions without importing the engine. ID utilities in ids.go
// import uuid but are isolated for selective inclusion.
package types

// GrammarID represents a UUIDv7 grammar identifier.
// String alias enables type safety while maintaining JSON string serialization.
type GrammarID string

// APIKeyID represents a UUIDv7 API key identifier.
type APIKeyID string

// TenantID scopes stored grammars and API keys.
type TenantID string

// Engine and analyzer limits.
const (
	// DefaultMaxDepth bounds recursive token expansion per parse call.
	// Exceeding it is fatal for that call (ErrRecursionLimit).
	DefaultMaxDepth = 100

	// MinMaxDepth is the smallest accepted expansion depth.
	MinMaxDepth = 1

	// SafeParseDepthFloor is the lowest depth SafeParse shrinks to when retrying.
	SafeParseDepthFloor = 10

	// SafeParseDepthFactor scales maxDepth down between SafeParse attempts.
	SafeParseDepthFactor = 0.7

	// DefaultSafeParseAttempts is the attempt budget when none is given.
	DefaultSafeParseAttempts = 3

	// WeightTolerance is the accepted deviation of a weight sum from 1.0.
	WeightTolerance = 1e-4

	// DefaultAnalysisDepth bounds the in-progress path of the analyzers.
	// Deeper references degrade to an approximation instead of failing.
	DefaultAnalysisDepth = 20

	// DefaultMaxOutcomes bounds probability enumeration per rule.
	DefaultMaxOutcomes = 1000

	// TopComplexRules is the number of entries reported in a total complexity ranking.
	TopComplexRules = 5

	// DefaultFloatDecimals formats continuous float ranges.
	DefaultFloatDecimals = 2

	// MaxRangeSteps bounds the discrete points of a stepped or integer range.
	// 2^53 is the largest count a float64 index still addresses exactly.
	MaxRangeSteps = 1 << 53

	// MaxPathDepth prevents runaway recursion when locating an embedded grammar.
	// 16 levels covers any realistic config nesting.
	MaxPathDepth = 16
)

// PathSegment represents one component of a document path.
// String for object keys, int for array indices.
type PathSegment struct {
	Key     string // object key (mutually exclusive with Index)
	Index   int    // array index (mutually exclusive with Key)
	IsIndex bool   // disambiguates Index=0 from unset
}

// internal/rules/help_test.go
package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpfulError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Empty(t, NewEngine().HelpfulError(nil, ""))
	})

	t.Run("recursion", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.AddRule("loop", []string{"%loop%"}))
		_, err := e.Parse("%loop%")
		require.Error(t, err)

		msg := e.HelpfulError(err, "%loop%")
		assert.Contains(t, msg, err.Error())
		assert.Contains(t, msg, "SetMaxDepth")
		assert.Contains(t, msg, "self-referencing rules: loop")
	})

	t.Run("weights", func(t *testing.T) {
		e := NewEngine()
		err := e.AddWeightedRule("w", []string{"a"}, []float64{0.5})
		require.Error(t, err)
		assert.Contains(t, e.HelpfulError(err, ""), "sum to 1.0")
	})

	t.Run("undefined input references and missing rules", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.AddRule("start", []string{"%ghost%"}))
		require.NoError(t, e.AddFunctionRule("f", GeneratorFunc(func() ([]string, error) {
			return nil, assert.AnError
		})))
		_, err := e.Parse("%f% %other%")
		require.Error(t, err)

		msg := e.HelpfulError(err, "%f% %other%")
		assert.Contains(t, msg, "generator")
		assert.Contains(t, msg, "input references undefined rules: other")
		assert.Contains(t, msg, "missing rules: ghost")
	})
}

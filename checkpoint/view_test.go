package checkpoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorFuncAdaptsPlainFunction(t *testing.T) {
	var seen [2]uint32
	op := OperatorFunc(func(tStart, tEnd uint32) error {
		seen[0], seen[1] = tStart, tEnd
		return nil
	})

	var o Operator = op
	assert.NoError(t, o.Apply(3, 4))
	assert.Equal(t, [2]uint32{3, 4}, seen)
}

func TestOperatorFuncPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	op := OperatorFunc(func(uint32, uint32) error { return boom })
	assert.ErrorIs(t, op.Apply(0, 1), boom)
}

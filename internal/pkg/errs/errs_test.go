//go:build unit

package errs_test

import (
	"errors"
	"testing"

	"academy-booking/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

var errSentinel = errs.New("sentinel failure")

func TestMark(t *testing.T) {
	cause := errors.New("driver exploded")

	t.Run("marked error matches both sentinel and cause", func(t *testing.T) {
		err := errs.Mark(cause, errSentinel)
		assert.True(t, errs.Is(err, errSentinel))
		assert.True(t, errs.Is(err, cause))
		assert.Equal(t, cause.Error(), err.Error())
	})

	t.Run("nil cause yields the sentinel", func(t *testing.T) {
		assert.Same(t, errSentinel, errs.Mark(nil, errSentinel))
	})

	t.Run("wrap keeps marks reachable", func(t *testing.T) {
		err := errs.Wrap(errs.Mark(cause, errSentinel), "reserve")
		assert.True(t, errs.Is(err, errSentinel))
		assert.Contains(t, err.Error(), "reserve")
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, errs.Wrap(nil, "noop"))
	})
}

type detailErr struct{ code int }

func (d *detailErr) Error() string { return "detail" }

func TestAs(t *testing.T) {
	err := errs.Mark(&detailErr{code: 7}, errSentinel)

	var target *detailErr
	if assert.True(t, errs.As(err, &target)) {
		assert.Equal(t, 7, target.code)
	}
}

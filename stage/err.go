package stage

import (
	"errors"

	"github.com/ezrec/rvsim/translate"
)

var f = translate.From

var (
	ErrAddress = errors.New(f("not an address"))
	ErrData    = errors.New(f("not byte data"))
)

// ErrParseExpression reports an expression that does not yield an address.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("'%v' is not a valid address expression", string(err))
}

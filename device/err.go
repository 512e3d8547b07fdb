package device

import (
	"errors"

	"github.com/ezrec/shenzhen/translate"
)

var f = translate.From

var (
	// Input errors
	ErrModeInvalid = errors.New(f("input mode invalid"))
)

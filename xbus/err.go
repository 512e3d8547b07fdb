package xbus

import (
	"errors"

	"github.com/ezrec/shenzhen/translate"
)

var f = translate.From

var (
	// Bus errors
	ErrBusNil = errors.New(f("bus not constructed"))
)

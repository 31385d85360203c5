package filterlang

import (
	"fmt"

	"github.com/curbz/skytrace/internal/errs"
)

var (
	errIllegalToken = fmt.Errorf("%w: illegal token", errs.ErrExpression)
	errUnexpected   = fmt.Errorf("%w: unexpected token", errs.ErrExpression)
	errType         = fmt.Errorf("%w: type mismatch", errs.ErrExpression)
	errUnknownField = fmt.Errorf("%w: unknown field", errs.ErrExpression)
)

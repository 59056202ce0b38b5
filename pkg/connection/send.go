package connection

import (
	"context"
)

// Send calls method on c and decodes the reply data into a new Result.
func Send[Result any](ctx context.Context, c Connection, method string, params any) (*Result, error) {
	var res Result
	if err := c.Send(ctx, &res, method, params); err != nil {
		return nil, err
	}
	return &res, nil
}

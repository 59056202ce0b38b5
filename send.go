package syncano

import (
	"context"

	"github.com/syncano/syncano.go/internal/validation"
	"github.com/syncano/syncano.go/pkg/connection"
)

// Send calls the remote method with params and decodes the reply data into
// a new Result.
//
// params is encoded with the codec of the connection; a request type from
// the models package or a map[string]any both work. Unlike the resource
// methods of DB, Send does not validate params.
func Send[Result any](ctx context.Context, db *DB, method string, params any) (*Result, error) {
	return connection.Send[Result](ctx, db.con, method, params)
}

// call validates req and sends it, decoding the reply into a new Result.
func call[Result any](ctx context.Context, db *DB, method string, req any) (*Result, error) {
	if err := validation.Struct(method, req); err != nil {
		return nil, err
	}
	return connection.Send[Result](ctx, db.con, method, req)
}

// callList is call for methods replying with a list. A missing list is empty.
func callList[Item any](ctx context.Context, db *DB, method string, req any) ([]Item, error) {
	res, err := call[[]Item](ctx, db, method, req)
	if err != nil {
		return nil, err
	}
	if *res == nil {
		return []Item{}, nil
	}
	return *res, nil
}

// exec validates req and sends it, discarding any reply data.
func exec(ctx context.Context, db *DB, method string, req any) error {
	if err := validation.Struct(method, req); err != nil {
		return err
	}
	return db.con.Send(ctx, nil, method, req)
}

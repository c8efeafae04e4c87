// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package gva

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/uci-network/ucid/fault"
)

// resolver error carrying its class in extensions.kind
type kindError struct {
	err error
}

func (e kindError) Error() string {
	return e.err.Error()
}

func (e kindError) Unwrap() error {
	return e.err
}

// Extensions - read by the GraphQL error formatter
func (e kindError) Extensions() map[string]interface{} {
	return map[string]interface{}{
		"kind": fault.Kind(e.err),
	}
}

func fail(err error) error {
	if nil == err {
		return nil
	}
	return kindError{err: err}
}

// a result for an operation that never reached the executor
func errorResult(err error) *graphql.Result {
	return &graphql.Result{
		Errors: []gqlerrors.FormattedError{
			{
				Message:    err.Error(),
				Extensions: kindError{err: err}.Extensions(),
			},
		},
	}
}

func firstError(result *graphql.Result) error {
	if 0 == len(result.Errors) {
		return nil
	}
	return fault.GenericError(result.Errors[0].Message)
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"fmt"
	"net/http"

	"seedapi/internal/apierror"
	"seedapi/internal/table"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type predicate func(row *table.Row) (bool, error)

// compileFilter turns a filter expression such as `price > 10 && active`
// into a row predicate. Row fields are the expression's variables; fields
// a row lacks evaluate to nil.
func compileFilter(expression string) (predicate, error) {
	if expression == "" {
		return nil, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, apierror.Wrap(http.StatusBadRequest, fmt.Sprintf("invalid filter expression %q", expression), err)
	}

	return func(row *table.Row) (bool, error) {
		return runFilter(program, expression, row)
	}, nil
}

func runFilter(program *vm.Program, expression string, row *table.Row) (bool, error) {
	out, err := expr.Run(program, row.Map())
	if err != nil {
		return false, apierror.Wrap(http.StatusBadRequest, fmt.Sprintf("filter %q failed", expression), err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, apierror.InvalidRequest(fmt.Sprintf("filter %q must evaluate to a boolean, got %T", expression, out))
	}
	return ok, nil
}

/*
Copyright © 2020 the wrfvar authors.
This file is part of wrfvar.

wrfvar is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfvar is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfvar.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfvar

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// ExpressionFunctions are the functions available in expressions
// evaluated by Store.Evaluate.
var ExpressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  unaryFunc("exp", math.Exp),
	"log":  unaryFunc("log", math.Log),
	"sqrt": unaryFunc("sqrt", math.Sqrt),
	"abs":  unaryFunc("abs", math.Abs),
	"sum": func(args ...interface{}) (interface{}, error) {
		x := make([]float64, len(args))
		for i, a := range args {
			v, ok := a.(float64)
			if !ok {
				return nil, fmt.Errorf("wrfvar: invalid argument %v for function 'sum'", a)
			}
			x[i] = v
		}
		return floats.Sum(x), nil
	},
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("wrfvar: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("wrfvar: invalid argument %v for function '%s'", args[0], name)
		}
		return f(x), nil
	}
}

// ExpressionVars returns the unique variable names used in expr.
func ExpressionVars(expr string) ([]string, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, ExpressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("wrfvar: parsing expression %q: %v", expr, err)
	}
	return removeDuplicates(e.Vars()), nil
}

// Evaluate calculates a new variable called name by evaluating expr cell
// by cell. The variables in expr are resolved with GetAll using opts and
// must all have the same shape. The result takes its dimensions and
// heights from the first variable in expr.
func (s *Store) Evaluate(name, expr string, opts ...Option) (*Variable, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, ExpressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("wrfvar: parsing expression %q: %v", expr, err)
	}
	names := removeDuplicates(e.Vars())
	if len(names) == 0 {
		return nil, fmt.Errorf("wrfvar: expression %q for %s does not contain any variables", expr, name)
	}
	vars, err := s.GetAll(names, opts...)
	if err != nil {
		return nil, err
	}
	first := vars[names[0]]
	for _, n := range names[1:] {
		if v := vars[n]; !sameShape(v.Data.Shape, first.Data.Shape) {
			return nil, &ShapeMismatchError{A: n, ShapeA: v.Shape(), B: names[0], ShapeB: first.Shape()}
		}
	}

	data := sparse.ZerosDense(first.Shape()...)
	params := make(map[string]interface{}, len(names))
	for i := range data.Elements {
		for _, n := range names {
			params[n] = vars[n].Data.Elements[i]
		}
		r, err := e.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("wrfvar: evaluating %s: %v", name, err)
		}
		x, ok := r.(float64)
		if !ok {
			return nil, fmt.Errorf("wrfvar: expression for %s returned %T instead of a number", name, r)
		}
		data.Elements[i] = x
	}
	o := first.clone()
	o.Name = name
	o.Data = data
	o.Attributes = map[string]interface{}{
		"long_name":   expr,
		"description": expr,
	}
	return o, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

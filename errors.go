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
	"strings"
)

// NotFoundError is returned when a requested name is neither a derived
// variable nor a stored variable, directly or through an alias.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("wrfvar: variable %s was not found", e.Name)
}

// IsNotFound reports whether err signals that the requested name itself
// could not be found. Failures of a derived variable's inputs are
// reported as a *DerivationError instead.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// ShapeMismatchError is returned when two arrays that must have the same
// shape do not.
type ShapeMismatchError struct {
	A, B           string
	ShapeA, ShapeB []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("wrfvar: shape mismatch: %s has shape %v but %s has shape %v",
		e.A, e.ShapeA, e.B, e.ShapeB)
}

// DerivationError is returned when a derived variable cannot be computed.
type DerivationError struct {
	Name string
	Err  error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("wrfvar: could not compute derived variable %s: %v", e.Name, e.Err)
}

// Unwrap returns the cause of the failure.
func (e *DerivationError) Unwrap() error { return e.Err }

// CycleError is returned when a variable depends on itself.
type CycleError struct {
	// Chain lists the names being resolved, ending with the repeated name.
	Chain []string
}

func (e *CycleError) Error() string {
	return "wrfvar: cyclic dependency: " + strings.Join(e.Chain, " -> ")
}

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
	"testing"

	"github.com/kr/pretty"
)

func TestExpressionVars(t *testing.T) {
	vars, err := ExpressionVars("QR_v + QS_v * 2 + exp(QR_v)")
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(vars, []string{"QR_v", "QS_v"}); len(diff) > 0 {
		t.Error(diff)
	}
	if _, err := ExpressionVars("QR_v +* 2"); err == nil {
		t.Error("want parse error")
	}
}

func TestStoreEvaluate(t *testing.T) {
	s := newTestStore(newMemSource(), nil)
	rho, err := s.Get("RHO")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("scale", func(t *testing.T) {
		v, err := s.Evaluate("RHO2", "RHO * 2")
		if err != nil {
			t.Fatal(err)
		}
		if v.Name != "RHO2" || v.LongName() != "RHO * 2" {
			t.Errorf("metadata: %s %s", v.Name, v.LongName())
		}
		for i, e := range v.Data.Elements {
			if e != 2*rho.Data.Elements[i] {
				t.Errorf("%d: %g", i, e)
			}
		}
		if diff := pretty.Diff(v.Dims, rho.Dims); len(diff) > 0 {
			t.Error(diff)
		}
	})
	t.Run("functions", func(t *testing.T) {
		v, err := s.Evaluate("x", "exp(log(RHO)) - abs(0 - sqrt(QV * QV)) + sum(QR, QC)")
		if err != nil {
			t.Fatal(err)
		}
		want := rho.Data.Elements[0] - 0.01 + 0.001
		if !approxEqual(v.Data.Elements[0], want, 1e-12) {
			t.Errorf("have %g, want %g", v.Data.Elements[0], want)
		}
	})
	t.Run("heights", func(t *testing.T) {
		v, err := s.Evaluate("x", "QV + QR", AssignHeights(), SharedHeights())
		if err != nil {
			t.Fatal(err)
		}
		if !v.HasHeights() {
			t.Error("no heights")
		}
	})
	t.Run("errors", func(t *testing.T) {
		if _, err := s.Evaluate("x", "1 + 2"); err == nil {
			t.Error("want error for expression without variables")
		}
		if _, err := s.Evaluate("x", "QV + U"); err == nil {
			t.Error("want error for shape mismatch")
		}
		if _, err := s.Evaluate("x", "QV + FOO"); !IsNotFound(err) {
			t.Errorf("want not found, got %v", err)
		}
		if _, err := s.Evaluate("x", "QV > 0"); err == nil {
			t.Error("want error for boolean result")
		}
	})
}

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
along with wrfvar.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash creates keys that identify cached files.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Hash returns a hexadecimal key for the given objects. The key is
// safe to use as a file or directory name.
func Hash(objects ...interface{}) string {
	h := fnv.New128a()

	e := gob.NewEncoder(h)
	ok := true
	for _, o := range objects {
		if err := e.Encode(o); err != nil {
			ok = false
			break
		}
	}
	if !ok {
		// gob can't encode some values (e.g., functions), so
		// print them instead.
		h.Reset()
		printer := spew.ConfigState{
			Indent:                  " ",
			SortKeys:                true,
			DisableMethods:          true,
			SpewKeys:                true,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
		}
		for _, o := range objects {
			printer.Fprintf(h, "%#v", o)
		}
	}
	bKey := h.Sum([]byte{})
	return fmt.Sprintf("%x", bKey[0:h.Size()])
}

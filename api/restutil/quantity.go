// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"
)

// Quantity is a big integer rendered as a decimal string in JSON, so amounts
// never lose precision in clients that parse numbers as float64.
type Quantity big.Int

// NewQuantity wraps v. A nil v becomes zero.
func NewQuantity(v *big.Int) *Quantity {
	if v == nil {
		return (*Quantity)(new(big.Int))
	}
	return (*Quantity)(new(big.Int).Set(v))
}

// Int returns the wrapped big integer.
func (q *Quantity) Int() *big.Int {
	return (*big.Int)(q)
}

// MarshalJSON implements json.Marshaler.
func (q *Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal((*big.Int)(q).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return errors.Errorf("malformed quantity %q", s)
	}
	*q = Quantity(*v)
	return nil
}

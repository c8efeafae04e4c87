// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"time"
)

// SetClock - replace the receive time source
func (r *Reservoir) SetClock(now func() time.Time) {
	r.now = now
}

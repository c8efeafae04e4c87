// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances
//
// Provides a single instance of errors to allow easy comparison
// without having to resort to partial string matches.  Every error
// belongs to a class (BackendError, CorruptedError, ...) and the class
// survives wrapping with fmt.Errorf("%w").
package fault

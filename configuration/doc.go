// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package configuration - read a Lua configuration file and watch
// auxiliary files for changes
//
// the whole of base Lua is available so a configuration can read
// files or call os.getenv to pick up environment supplied items.
// Extra string globals can be injected before the file runs.
package configuration

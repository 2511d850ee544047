// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string and file helpers shared across the
// application.
//
// String helpers are UTF-8 aware: truncation counts runes or display cells
// (via go-runewidth), never bytes, so multi-byte characters are preserved.
// AtomicWriteFile provides crash-safe file writes for exports.
package util

// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides channel-coordination helpers for tests that
// synchronize with background goroutines. The helpers wrap the
// select-with-timeout safety valve so individual tests never hang.
package testutil

// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock access for testability. Production
// code injects Real(); tests inject Fake() and advance time explicitly,
// which makes elapsed-time console markers deterministic.
package clock

// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Benchwire-attach connects to a benchwire-console observer relay and
// streams the device's console to the local terminal: retained history
// first, then live output. Observation is read-only; press q or Ctrl-C
// to detach.
package main

// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Benchwire-console is the bench-side console agent. It owns a device's
// console transport, frames the output stream into line history, and
// optionally exports the stream to network observers and to a captured
// log file. Operator input on stdin is forwarded to the device verbatim.
package main

// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Benchwire binaries.
//
// Configuration is loaded from a single YAML file specified by the
// BENCHWIRE_CONFIG environment variable or the --config flag. There is
// no automatic discovery and no environment-variable overrides of
// individual values: the file is the single source of truth, which
// keeps a bench's configuration deterministic and auditable.
package config

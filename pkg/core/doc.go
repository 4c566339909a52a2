// Package core defines the shared language of relsplit.
//
// This package contains:
//   - Rule entities (RuleSet, BlockPattern, OutputPath)
//   - Extraction values (Document, Block)
//   - The object type map and the diagnostic Status levels
//   - The Matcher interface implemented by compiled templates
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

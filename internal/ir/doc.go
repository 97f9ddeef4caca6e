// Package ir provides the intermediate representation shared by every stage
// of the planning pipeline.
//
// This package contains type definitions plus the canonical JSON and digest
// primitives used for content-addressed plan identity. All other internal
// packages import ir; ir imports nothing internal.
//
// Key constraints:
//   - All JSON tags use snake_case, except the explainability fields whose
//     camelCase names are part of the preview contract
//   - Hashes are computed only over MarshalCanonical output, never json.Marshal
//   - Wall-clock timestamps never enter a hash
package ir

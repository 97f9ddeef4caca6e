// Package engine builds plan previews.
//
// A preview is produced in four fixed stages:
//
//  1. Classify: every line item is classified against the category and
//     deliverable registries (package classifier).
//  2. Derive groups: items are partitioned into one project group, one
//     deliverable group per item and one shared group per group key.
//  3. Match: active rules are evaluated against every group, in priority
//     descending, id ascending order, to select template candidates.
//  4. Assemble: the plan input is hashed, the plan id derived and the
//     result stamped with versions and computed_at.
//
// CRITICAL PATTERNS:
//
// Determinism:
// Given the same record, line items, registries, templates, rules and clock
// reading, Build produces byte-identical output. Group membership is a set,
// every list is sorted before it is emitted, and no stage depends on map
// iteration order or on the order line items arrive in.
//
// Warnings, not errors:
// Bad item configuration, unknown registry keys and malformed rule criteria
// degrade confidence or skip a rule and are reported as warnings. Only a
// missing record, a failed source read, cancellation or a missing hash
// primitive abort a plan.
package engine

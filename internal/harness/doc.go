// Package harness runs planner scenarios.
//
// A scenario is a YAML file naming a CUE catalog, a workspace config, one
// record with its line items, and assertions on the resulting plan preview:
//
//	name: dining_room
//	description: "Shared samples and dining table tasks"
//	catalog: ../../catalog
//	record:
//	  uri: qb://estimate/1001
//	  snapshot_hash: snap-1001
//	line_items:
//	  - uri: qb://estimate/1001/line/1
//	    category_key: furniture
//	    deliverable_key: dining_table
//	    config: {workflow: {requiresDesign: true}}
//	assertions:
//	  - type: candidates
//	    group: deliverable::qb://estimate/1001/line/1
//	    templates: [furniture.dining_table.base, furniture.dining_table.design]
//
// Run executes the same path as `taskplan preview`: the catalog is compiled
// and imported into a fresh in-memory store, the fixture is written, and the
// planner reads everything back through the store. The clock and run id are
// fixed so previews are reproducible; AssertGolden compares a preview
// snapshot with a goldie golden file.
//
// The same Fixture format is used by `taskplan import`.
package harness

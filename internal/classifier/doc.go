// Package classifier turns one line item's free-form configuration plus the
// registry snapshot into a Classification.
//
// Classification never fails. Every anomaly becomes a warning string and,
// for invalid configuration or missing registry entries, a confidence
// penalty:
//
//	invalid config_json          confidence <= 0.7
//	unknown category/deliverable confidence <= 0.5
//
// Penalties are min-based, so adding a failure condition never raises
// confidence.
package classifier

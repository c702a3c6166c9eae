// Package convert is the translation engine: it walks a Home Assistant
// installation's devices, entities and automations and emits a
// SAREF-aligned knowledge graph.
//
// The engine is deterministic and strictly sequential. Every run owns
// fresh caches (identity counter, class resolutions, property/unit
// lookups); nothing survives between runs, so privacy settings and the
// instance namespace can vary per run without identity leakage.
//
// Failure policy:
//   - malformed entity ids and invalid automation schemas abort only
//     the item at hand; the run continues and the skip is logged
//   - unmapped domains, actions and trigger platforms are modeled under
//     generic fallback classes, never dropped silently
//   - upstream request failures are fatal to the whole run
package convert

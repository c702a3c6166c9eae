// Package hass is the Home Assistant registry client.
//
// It combines three access paths the conversion engine needs:
//   - the REST API for states, services and automation configs
//   - the WebSocket API for the device registry listing
//   - the template endpoint for registry lookups the REST API does not
//     expose (device attributes, device entities, area assignments)
//
// Home Assistant renders template results as text; absent values come
// back as the literal string "None", which callers must treat as a
// sentinel. Lookups are memoized for the lifetime of a client, and a
// client lives for exactly one export run.
//
// Thread Safety:
//   - A Client is NOT safe for concurrent use. The engine is strictly
//     sequential, one request at a time.
package hass

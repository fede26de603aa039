// Package param defines the uniform parameter node contract used by the
// ensemble engine.
//
// Key pieces:
//   - Node: the capability set every parameter kind implements
//   - Registration/Register: the kind registry the engine dispatches through
//
// A full assimilation cycle for one ensemble member runs in this order:
// allocate -> (ReadFile | SetData) -> Serialize -> [external update] ->
// Deserialize -> Truncate -> OutputTransform -> (optional WriteFile).
// Violating this order is a caller bug; nodes do not detect it.
package param

// Package ir provides the value model and key derivation for the
// normalized cache.
//
// This package contains value types and pure functions only. All other
// internal packages import ir; ir imports nothing internal. This ensures
// ir remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Values are a sealed variant set (Null, String, Int, Float, Bool,
//     List, Object, Ref) - no raw interface{} payloads past the boundary
//   - References are plain identity strings wrapped in a value type,
//     never pointers into store memory
//   - All identity and storage-key derivation is deterministic: same
//     inputs produce the same string regardless of map iteration order
package ir

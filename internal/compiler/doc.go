// Package compiler turns CUE cache configuration into policy
// configuration.
//
// Read and merge functions are Go code and register programmatically;
// the declarative subset - per-type key fields, per-field key-argument
// filters, builtin merge functions by name, and the store's conflict
// policy - lives in CUE files so it can be validated and shipped as
// configuration:
//
//	cache: {
//		conflict: "overwrite"
//		types: {
//			Book: {
//				keyFields: ["isbn"]
//				fields: reviews: {keyArgs: ["lang"], merge: "append"}
//			}
//			Query: {
//				fields: book: {keyArgs: ["id"]}
//			}
//		}
//	}
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package compiler

// Package schema declares record node types in YAML so that a dialogue
// domain can be served without writing Go.
//
// A catalog lists record types and their fields in declaration order:
//
//	types:
//	  Trip:
//	    dest: {type: string, positional: true, required: true}
//	    days: int
//	    tags: "[string]"
//	  Booking:
//	    trip: Trip
//	    guest: string
//
// Field types are the builtin scalars (string, int, float, bool, or their
// node names Str, Int, Float, Bool), "any", or another record type of the
// catalog. A type wrapped in brackets accepts several values.
//
// A parsed catalog registers its records into a node registry:
//
//	cat, err := schema.Parse(data)
//	if err != nil {
//	    // Handle parse or validation errors
//	}
//	eng, err := tendril.New(tendril.WithTypes(cat.Register))
package schema

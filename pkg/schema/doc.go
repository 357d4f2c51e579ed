// Package schema checks story values against declared types.
//
// A Schema maps argument or field names to a Type. Types can be built in
// code or parsed from short type strings:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "name":  "string",
//	    "score": "int",
//	    "tags":  "[string]",
//	})
//	err = schema.Validate(s, args)
//
// Validate reports every failing field at once through AggregateError.
package schema

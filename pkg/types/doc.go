// Package types defines the entity types, the typed value union, the error
// taxonomy, and the configuration for the Facets custom-fields service.
//
// The four core entities are Field (a typed attribute definition), Schema
// (a named, ordered, reusable bundle of fields), Label (an external
// classification entity optionally bound to one schema), and FieldValue
// (the stored value of one field for one item). Items and labels are owned
// by the surrounding bookmark application; they appear here only as far as
// the field system needs to reference them.
package types

// Package state binds persist values to storage locations.
//
// A Store loads and saves one document per location. FileStore writes
// documents as indented JSON and protects every save with a backup copy:
//
//	save: rename primary -> primary+suffix, write primary, remove backup
//	load: primary missing or unparsable + backup present -> restore, retry once
//
// Entity pairs a persist.Value with a Store location; Repository hands out
// exactly one Entity per identity key and loads it when it is first opened.
// Mutate, Apply and Go wrap a mutation in load/save.
//
// The package makes no claim of safety under concurrent mutation of the same
// entity. Callers coordinating from multiple goroutines supply their own
// mutual exclusion around load/mutate/save sequences.
package state

// Package pid defines the process identifier type shared by every
// paging package that needs to name "the owning process" without
// importing the process package itself — frame, spt, and diag all need
// to talk about ownership, but only proc needs to own a process table,
// so the identifier lives here to keep the dependency graph acyclic.
package pid

// ID identifies a process. The zero value is not a valid process.
type ID int

// None is the sentinel meaning "no process".
const None ID = 0

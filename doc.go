/*
Package tabula binds paginated, filterable remote REST collections to local
table state: declarative per-table filter and column definitions, immutable
table state with pure transitions, deterministic query composition,
last-request-wins fetching, and capability-gated row and bulk actions with
optimistic local reconciliation after confirmed mutations.

This package is intended to be imported and used by other applications.
The exported functions, such as NewClient and NewServer, are used externally
and may not be referenced inside this module itself.
*/
package tabula // import "github.com/tabworks/tabula"

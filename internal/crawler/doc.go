// Package crawler defines the contracts shared by the fetch workers, the
// frontier queue and the output adapters.
package crawler

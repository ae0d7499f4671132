// Package mexc normalizes the MEXC spot websocket feed.
//
// A Feed owns the per-instance symbol table and book cache. Depth frames are
// full top-N snapshots, so every frame replaces the cached book for its symbol
// instead of being merged into it. Prices and sizes are kept as apd decimals
// end to end, and exchange timestamps are reported as float epoch seconds.
//
// The private order channel is recognised by the router but rejected: its
// handler returns core.ErrUnimplemented, and subscribing to it fails before
// the connection is dialed.
package mexc

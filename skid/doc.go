// Package skid models a one-stage skid buffer, an elastic register that sits
// between a producer and a consumer speaking the ready/valid handshake.
//
// The register holds at most one item. Its outputs are combinational
// functions of the state latched at the previous clock edge:
//
//	out_valid = valid
//	out_data  = data
//	in_ready  = !valid || out_ready
//
// On every clock edge the register applies one atomic update. When the
// producer's item is accepted (in_valid && in_ready) it is latched, when the
// held item is taken (out_valid && out_ready) and nothing new arrives the
// register empties, and when both happen in the same cycle the new item
// replaces the departing one without a bubble. A synchronous reset empties
// the register and clears the data.
//
// Step is the pure transition function; Register wraps it with state, width
// checking and hooks.
package skid

// Package session implements the interactive messaging session: the
// subscription registry, the bounded message history, the inbound message
// dispatcher, and the command loop that drives subscribe/publish against
// one connection.
//
// # Concurrency
//
// One foreground goroutine runs the blocking command loop. The transport's
// dispatch goroutines invoke the Dispatcher and deliver lifecycle events
// asynchronously. The message history and its counters are the only state
// mutated by both sides; they share a single mutex inside History. The
// subscription registry is mutated by the foreground loop and by the
// resume-restoration path, so it carries its own lock.
//
// # Command grammar
//
// Space-delimited, first token case-insensitive:
//
//	sub <topic> | sub1 <topic> | unsub <topic>
//	pub <topic> <text> | pub1 <topic> <text>
//	json <topic> key=value...
//	test | status | messages | debug [topic] | clear | help | quit
//
// Failures of any command are reported on a single line and the loop
// continues; the loop only exits on quit, EOF, operator interrupt, or a
// panicking handler.
package session

// Package tcp serves the command log over TCP.
//
// Each connection submits one newline-terminated record. The worker that owns
// the connection appends it to the store, replies with the whole log as it
// stood after the commit and closes the connection. Serve runs the accept
// loop until its context is done, then closes the listener and joins every
// worker that is still in flight.
package tcp

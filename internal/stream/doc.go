// Package stream consumes the generation endpoint's framed event protocol.
//
// A generation response is one long-lived HTTP body carrying UTF-8 JSON
// events separated by a blank line. [Client.Start] issues the request and
// returns a [Run]: a cancellable handle that decodes frames sequentially,
// folds them into a task map, and surfaces each event plus the terminal
// result. At most one run per client is live at a time; starting a new one
// abandons the previous run.
package stream

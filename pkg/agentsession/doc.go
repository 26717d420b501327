// Package agentsession drives one turn of a multi-turn agent chat: an RPM
// gate, message assembly over the last 50 turns of persisted history, a
// buffered-capture router call, history append, and the same usage/trace
// accounting as a one-shot inference call.
package agentsession

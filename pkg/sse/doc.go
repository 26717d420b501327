// Package sse demultiplexes an OpenAI-compatible server-sent-events body
// into content deltas. Events are separated by blank lines; each data line
// is either the sentinel "[DONE]" or a JSON chunk read at
// choices[0].delta.content or choices[0].text. Malformed frames are
// skipped rather than failing the stream.
package sse

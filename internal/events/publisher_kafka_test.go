package events

import "io"

// The server shuts the publisher down with a plain deferred Close; the
// flush deadline lives inside Close, not at the callsite.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ io.Closer = (*KafkaPublisher)(nil)
)

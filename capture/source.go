package capture

// Source is the boundary to the packet-capture mechanism. Implementations
// decode packets from somewhere (live interface, recorded frames) and expose
// them as Records; the pipeline never touches raw bytes itself.
type Source interface {
	// Packets returns the channel of decoded records. The channel is closed
	// when the source is exhausted or closed.
	Packets() <-chan Record

	// Close stops the source and releases its resources.
	Close() error
}

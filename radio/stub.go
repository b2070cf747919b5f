package radio

// Stub is a driverless radio: transmissions vanish and nothing is received.
// The run command always uses it, so a node can still be driven over the
// serial console.
type Stub struct{}

func (Stub) Attach(Callbacks)                    {}
func (Stub) Broadcast([]byte) error              { return nil }
func (Stub) Unicast(uint8, []byte) error         { return nil }
func (Stub) Runicast(uint8, []byte, uint8) error { return nil }
func (Stub) IsTransmitting() bool                { return false }
func (Stub) Close() error                        { return nil }

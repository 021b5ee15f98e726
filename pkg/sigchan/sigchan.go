package sigchan

// Chan carries wake-up signals with no payload. Emit never blocks: when the buffer
// is full the signal merges with the one already pending.
type Chan struct {
	c chan struct{}
}

func New(bufferSize int) *Chan {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Chan{c: make(chan struct{}, bufferSize)}
}

func (c *Chan) Emit() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// C is the receive side, for use in select.
func (c *Chan) C() <-chan struct{} {
	return c.c
}

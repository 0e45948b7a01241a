package alerts

import "context"

// Process exposes process to external tests.
func (d *Dispatcher) Process(ctx context.Context) error {
	return d.process(ctx)
}

// LimitPerIteration exposes limitPerIteration to external tests.
func (d *Dispatcher) LimitPerIteration() uint {
	return d.limitPerIteration
}

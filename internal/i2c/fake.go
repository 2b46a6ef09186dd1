package i2c

import (
	"fmt"
	"sync"
)

// Device answers transfers for one address on a FakeBus.
type Device interface {
	Tx(w, r []byte) error
}

// FakeBus routes transfers to registered devices by address.
type FakeBus struct {
	mu      sync.Mutex
	devices map[uint16]Device
	// Transfers counts Tx calls per address.
	Transfers map[uint16]int
}

// NewFakeBus creates an empty bus.
func NewFakeBus() *FakeBus {
	return &FakeBus{
		devices:   make(map[uint16]Device),
		Transfers: make(map[uint16]int),
	}
}

// Attach registers dev at addr.
func (b *FakeBus) Attach(addr uint16, dev Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[addr] = dev
}

// Detach removes the device at addr, as if it were unplugged.
func (b *FakeBus) Detach(addr uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.devices, addr)
}

// Tx routes the transfer, failing like a NACK when nothing answers.
func (b *FakeBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	dev, ok := b.devices[addr]
	b.Transfers[addr]++
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("no device at 0x%02x", addr)
	}
	return dev.Tx(w, r)
}

// Registers is a register-file device: a write sets the register pointer
// followed by data bytes, a read returns bytes from the pointer onward.
type Registers struct {
	mu  sync.Mutex
	Mem [256]byte
	ptr byte
}

// Tx implements Device.
func (d *Registers) Tx(w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(w) > 0 {
		d.ptr = w[0]
		for _, b := range w[1:] {
			d.Mem[d.ptr] = b
			d.ptr++
		}
	}
	for i := range r {
		r[i] = d.Mem[d.ptr]
		d.ptr++
	}
	return nil
}

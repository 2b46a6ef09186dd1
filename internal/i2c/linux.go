//go:build linux

package i2c

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl from <linux/i2c-dev.h>.
const i2cSlave = 0x0703

// Bus is an open /dev/i2c-N adapter.
type Bus struct {
	mu   sync.Mutex
	fd   int
	path string
	addr int
}

// Open opens the adapter device, e.g. /dev/i2c-1.
func Open(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Bus{fd: fd, path: path, addr: -1}, nil
}

// Tx writes w then reads len(r) bytes from the device at addr.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd < 0 {
		return fmt.Errorf("%s: bus closed", b.path)
	}
	if int(addr) != b.addr {
		if err := unix.IoctlSetInt(b.fd, i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("%s: select 0x%02x: %w", b.path, addr, err)
		}
		b.addr = int(addr)
	}

	if len(w) > 0 {
		n, err := unix.Write(b.fd, w)
		if err != nil {
			return fmt.Errorf("%s: write: %w", b.path, err)
		}
		if n != len(w) {
			return fmt.Errorf("%s: short write %d/%d", b.path, n, len(w))
		}
	}
	if len(r) > 0 {
		n, err := unix.Read(b.fd, r)
		if err != nil {
			return fmt.Errorf("%s: read: %w", b.path, err)
		}
		if n != len(r) {
			return fmt.Errorf("%s: short read %d/%d", b.path, n, len(r))
		}
	}
	return nil
}

// Close releases the adapter.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	if err != nil {
		return fmt.Errorf("close %s: %w", b.path, err)
	}
	return nil
}

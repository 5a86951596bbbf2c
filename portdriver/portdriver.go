// Package portdriver defines interfaces and helpers shared by the port
// drivers, the hardware the two I2C lines of the bit-banged master are wired
// to.
package portdriver

// I2C defines a minimum interface to I2C hardware with a single Tx method
// which allows a single driver implementation to work across many different
// µControllers and host platforms. Port drivers that sit behind a hardware
// I2C bus (such as I/O expanders) use this interface. It is satisfied by
// periph.io i2c.Bus and by TinyGo machine.I2C.
type I2C interface {

	// Tx performs a write and then a read transfer placing the result in r. Tx
	// must be safe to call concurrently from multiple goroutines.
	//
	// Passing a nil value for w or r skips the transfer corresponding to write
	// or read, respectively.
	//
	//  i2c.Tx(addr, nil, r)
	// Performs only a read transfer.
	//
	//  i2c.Tx(addr, w, nil)
	// Performs only a write transfer.
	Tx(addr uint16, w, r []byte) error
}

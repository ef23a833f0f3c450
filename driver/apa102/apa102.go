// Package apa102 drives a chain of APA102 RGB LEDs over SPI.
package apa102

import (
	"fmt"
	"image/color"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// MaxBrightness is the maximum global brightness.
const MaxBrightness = 31

type Device struct {
	// Brightness is the global brightness of every LED, in [0,
	// MaxBrightness].
	Brightness uint8

	port spi.PortCloser
	conn spi.Conn
	n    int
	buf  []byte
}

// Open connects to a chain of n LEDs on the named SPI port. An empty
// name selects the first available port.
func Open(name string, n int) (*Device, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("apa102: %w", err)
	}
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("apa102: %w", err)
	}
	d := New(c, n)
	d.port = p
	return d, nil
}

// New returns a device for a chain of n LEDs on an established SPI
// connection.
func New(c spi.Conn, n int) *Device {
	// Start frame, one frame per LED and an end frame of at least
	// n/2 clock edges.
	end := max(4, (n+15)/16)
	return &Device{
		Brightness: MaxBrightness,
		conn:       c,
		n:          n,
		buf:        make([]byte, 4+4*n+end),
	}
}

// Write sets the LED colors, first LED first. LEDs without a color
// are given the last color.
func (d *Device) Write(colors ...color.Color) error {
	if len(colors) == 0 {
		return nil
	}
	b := d.buf
	clear(b[:4])
	for i := range d.n {
		c := colors[min(i, len(colors)-1)]
		r, g, bl, _ := c.RGBA()
		f := b[4+4*i:]
		f[0] = 0b111<<5 | min(d.Brightness, MaxBrightness)
		f[1] = uint8(bl >> 8)
		f[2] = uint8(g >> 8)
		f[3] = uint8(r >> 8)
	}
	end := b[4+4*d.n:]
	for i := range end {
		end[i] = 0xff
	}
	if err := d.conn.Tx(b, nil); err != nil {
		return fmt.Errorf("apa102: %w", err)
	}
	return nil
}

func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	d.conn = nil
	return err
}

// Package enginetest starts engines against scripted fake targets.
package enginetest

import (
	"testing"

	"github.com/metal-test/metal/internal/engine"
	"github.com/metal-test/metal/internal/symbols"
	"github.com/metal-test/metal/internal/testutil"
)

const (
	// LinkWrite is the link-time address of the write entry point.
	LinkWrite = 0x2000
	// LinkInit is the link-time address of InitMarker.
	LinkInit = 0x1000
	// LoadBase is the offset at which fake targets claim to be loaded.
	LoadBase = 0x40000
)

// InitMarker is the marker fake targets report during the handshake.
var InitMarker = symbols.Marker{
	Symbol: symbols.NewSymbol("__metal_serial_0", LinkInit, "STT_NOTYPE"),
	File:   "/src/main.c",
	Line:   1,
}

// Resolver is an in-memory engine.Resolver.
type Resolver struct {
	Markers map[uint64]*symbols.Marker
}

// NewResolver returns a resolver knowing InitMarker and markers.
func NewResolver(markers ...symbols.Marker) *Resolver {
	r := &Resolver{Markers: map[uint64]*symbols.Marker{}}
	init := InitMarker
	r.Markers[init.Address] = &init
	for i := range markers {
		m := markers[i]
		r.Markers[m.Address] = &m
	}
	return r
}

func (r *Resolver) WriteAddress() uint64 { return LinkWrite }

func (r *Resolver) FindMarker(addr uint64) (*symbols.Marker, bool) {
	m, ok := r.Markers[addr]
	return m, ok
}

// Location is the runtime address a fake target reports for a link-time address.
func Location(link uint64) uint64 {
	return LoadBase + link
}

// Start handshakes a 4-byte little-endian target and hands it to script.
func Start(t *testing.T, script func(tg *testutil.Target) error) *engine.Engine {
	t.Helper()
	return StartWith(t, 4, false, NewResolver(), script)
}

// StartWith handshakes a target of the given width and order.
func StartWith(t *testing.T, width int, bigEndian bool, resolver engine.Resolver, script func(tg *testutil.Target) error) *engine.Engine {
	t.Helper()
	target := testutil.NewFakeTarget(t, width, bigEndian, func(tg *testutil.Target) error {
		tg.Handshake(Location(resolver.WriteAddress()), Location(LinkInit))
		return script(tg)
	})
	e, err := engine.New(resolver, target, target, testutil.NewTestLogger(t))
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	return e
}

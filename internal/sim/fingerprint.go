package sim

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Fingerprint hashes every worker's queue and inspection count. Two registries
// with the same fingerprint are, for all practical purposes, in the same state.
func Fingerprint(r *Registry) uint64 {
	buf := make([]byte, 0, 8*(3*len(r.Workers)+r.TotalItems()))
	for _, w := range r.Workers {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(w.ID))
		buf = binary.LittleEndian.AppendUint64(buf, w.Inspected)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(w.Items)))
		for _, it := range w.Items {
			buf = binary.LittleEndian.AppendUint64(buf, it)
		}
	}
	return xxh3.Hash(buf)
}

package domain

// SupplyCounts holds the claimed and unclaimed token counts of a drop.
type SupplyCounts struct {
	Claimed   uint64
	Unclaimed uint64
}

// Total returns claimed + unclaimed. It is recomputed on every call.
func (s SupplyCounts) Total() uint64 {
	return s.Claimed + s.Unclaimed
}

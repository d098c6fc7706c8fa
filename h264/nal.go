package h264

// NAL is a single NAL unit found in an Annex-B stream, without its start
// code. Data is owned by the caller.
type NAL struct {
	// Offset of the header byte within the source stream
	Offset int64
	// Data holds the header byte followed by the payload
	Data []byte
}

// Type is Unspecified for a unit without a header byte.
func (n *NAL) Type() NALUnitType {
	if len(n.Data) == 0 {
		return Unspecified
	}
	return TypeFromHeader(n.Data[0])
}

// Payload returns the bytes after the header byte.
func (n *NAL) Payload() []byte {
	if len(n.Data) == 0 {
		return nil
	}
	return n.Data[1:]
}

func (n *NAL) Size() int {
	return len(n.Data)
}

// Entry describes one unit yielded by Scanner.ReadAll.
type Entry struct {
	Index  int
	Type   NALUnitType
	Offset int64
	Size   int
}

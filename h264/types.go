package h264

import (
	"errors"
	"fmt"
)

var ErrTypeOutOfRange = errors.New("nal_unit_type out of range")

// NALUnitType is the 5-bit nal_unit_type carried in the low bits of a NAL
// unit header byte.
type NALUnitType byte

const (
	// Rec. ITU-T H.264 (08/2021) p.65
	Unspecified                        = NALUnitType(0)  //	Unspecified
	CodedSliceNonIDRPicture            = NALUnitType(1)  //	Coded slice of a non-IDR picture
	CodedSliceDataPartitionA           = NALUnitType(2)  //	Coded slice data partition A
	CodedSliceDataPartitionB           = NALUnitType(3)  //	Coded slice data partition B
	CodedSliceDataPartitionC           = NALUnitType(4)  //	Coded slice data partition C
	CodedSliceIDRPicture               = NALUnitType(5)  //	Coded slice of an IDR picture
	SupplementalEnhancementInformation = NALUnitType(6)  //	Supplemental enhancement information (SEI)
	SequenceParameterSet               = NALUnitType(7)  //	Sequence parameter set
	PictureParameterSet                = NALUnitType(8)  //	Picture parameter set
	AccessUnitDelimiter                = NALUnitType(9)  //	Access unit delimiter
	EndOfSequence                      = NALUnitType(10) //	End of sequence
	EndOfStream                        = NALUnitType(11) //	End of stream
	FillerData                         = NALUnitType(12) //	Filler data

	// MaxNALUnitType is the highest value covered by the classification table.
	MaxNALUnitType = NALUnitType(23)
)

const reservedOrUnknown = "Reserved/Unknown"

var nalUnitTypeNames = [MaxNALUnitType + 1]string{
	"Unspecified",
	"Coded slice of a non-IDR picture",
	"Coded slice data partition A",
	"Coded slice data partition B",
	"Coded slice data partition C",
	"Coded slice of an IDR picture",
	"Supplemental enhancement information",
	"Sequence parameter set",
	"Picture parameter set",
	"Access unit delimiter",
	"End of sequence",
	"End of stream",
	"Filler data",
	"Reserved", // 13
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved", // 23
}

// TypeFromHeader extracts nal_unit_type from a NAL unit header byte,
// ignoring forbidden_zero_bit and nal_ref_idc.
func TypeFromHeader(header byte) NALUnitType {
	return NALUnitType(header & 0x1f)
}

// Name classifies the type. Values above MaxNALUnitType fail with
// ErrTypeOutOfRange.
func (t NALUnitType) Name() (string, error) {
	if t > MaxNALUnitType {
		return "", fmt.Errorf("%w: %d", ErrTypeOutOfRange, t)
	}
	return nalUnitTypeNames[t], nil
}

func (t NALUnitType) String() string {
	name, err := t.Name()
	if err != nil {
		return reservedOrUnknown
	}
	return name
}

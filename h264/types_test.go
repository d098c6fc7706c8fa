package h264_test

import (
	"testing"

	"github.com/flavioribeiro/nalscan/h264"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNALUnitType_Name(t *testing.T) {
	tests := []struct {
		typ  h264.NALUnitType
		want string
	}{
		{typ: h264.Unspecified, want: "Unspecified"},
		{typ: h264.CodedSliceNonIDRPicture, want: "Coded slice of a non-IDR picture"},
		{typ: h264.CodedSliceIDRPicture, want: "Coded slice of an IDR picture"},
		{typ: h264.SupplementalEnhancementInformation, want: "Supplemental enhancement information"},
		{typ: h264.SequenceParameterSet, want: "Sequence parameter set"},
		{typ: h264.PictureParameterSet, want: "Picture parameter set"},
		{typ: h264.FillerData, want: "Filler data"},
		{typ: h264.NALUnitType(13), want: "Reserved"},
		{typ: h264.MaxNALUnitType, want: "Reserved"},
	}

	for _, tt := range tests {
		name, err := tt.typ.Name()
		require.NoError(t, err)
		assert.Equal(t, tt.want, name)
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestNALUnitType_OutOfRange(t *testing.T) {
	for v := 24; v <= 31; v++ {
		typ := h264.NALUnitType(v)

		name, err := typ.Name()
		assert.Empty(t, name)
		assert.ErrorIs(t, err, h264.ErrTypeOutOfRange)
		assert.Equal(t, "Reserved/Unknown", typ.String())
	}
}

func TestTypeFromHeader(t *testing.T) {
	assert.Equal(t, h264.SequenceParameterSet, h264.TypeFromHeader(0x67))
	assert.Equal(t, h264.PictureParameterSet, h264.TypeFromHeader(0x68))
	assert.Equal(t, h264.CodedSliceIDRPicture, h264.TypeFromHeader(0x65))
	assert.Equal(t, h264.CodedSliceNonIDRPicture, h264.TypeFromHeader(0x41))
	// forbidden_zero_bit set
	assert.Equal(t, h264.NALUnitType(31), h264.TypeFromHeader(0xFF))
}

package entities

import (
	"errors"
	"fmt"
)

var ErrHTTPGetOnly = errors.New("you must use http GET verb")
var ErrHTTPPostOnly = errors.New("you must use http POST verb")
var ErrMissingParamsOffer = errors.New("ParamsOffer must not be nil")
var ErrMissingRemoteOffer = errors.New("nil offer, in order to connect one must pass a valid offer")
var ErrMissingInputPath = errors.New("input path must not be empty")

// RTP transport
var ErrRTP = errors.New("rtp error")
var ErrInvalidDestination = fmt.Errorf("%w bad destination address", ErrRTP)
var ErrMissingDestination = fmt.Errorf("%w session has no destination", ErrRTP)
var ErrRTPPacketTooLarge = fmt.Errorf("%w packet is larger than the maximum packet size", ErrRTP)
var ErrRTPSessionClosed = fmt.Errorf("%w session is closed", ErrRTP)

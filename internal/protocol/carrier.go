// Package protocol decodes and encodes the JSON envelopes spoken on the two
// legs of a relayed call: the carrier media stream ("event" frames) and the AI
// realtime endpoint ("type" events). Audio payloads are carried as opaque
// base64 strings and are never decoded here.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CarrierEvent identifies carrier media-stream frame variants.
type CarrierEvent string

const (
	CarrierEventConnected CarrierEvent = "connected"
	CarrierEventStart     CarrierEvent = "start"
	CarrierEventMedia     CarrierEvent = "media"
	CarrierEventStop      CarrierEvent = "stop"
	CarrierEventMark      CarrierEvent = "mark"
)

// TurnEndMark is the mark name sent to the carrier after a completed AI turn.
const TurnEndMark = "auntie-turn-end"

var (
	ErrMissingEvent    = errors.New("carrier frame missing event")
	ErrInvalidStart    = errors.New("carrier start frame missing streamSid")
	ErrMissingType     = errors.New("realtime event missing type")
	errEmptyFrameBytes = errors.New("empty frame")
)

// CarrierFrame is one decoded inbound carrier frame. The concrete type is one
// of StartFrame, MediaFrame, StopFrame, MarkFrame or OtherFrame.
type CarrierFrame interface {
	CarrierEvent() CarrierEvent
}

type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

type StartFrame struct {
	StreamSID        string
	CallSID          string
	AccountSID       string
	Tracks           []string
	MediaFormat      MediaFormat
	CustomParameters map[string]string
}

type MediaFrame struct {
	StreamSID string
	Track     string
	Chunk     string
	Timestamp string
	Payload   string
}

type StopFrame struct {
	StreamSID string
	CallSID   string
}

type MarkFrame struct {
	StreamSID string
	Name      string
}

// OtherFrame is any frame whose event the relay does not act on.
type OtherFrame struct {
	Event CarrierEvent
}

func (StartFrame) CarrierEvent() CarrierEvent   { return CarrierEventStart }
func (MediaFrame) CarrierEvent() CarrierEvent   { return CarrierEventMedia }
func (StopFrame) CarrierEvent() CarrierEvent    { return CarrierEventStop }
func (MarkFrame) CarrierEvent() CarrierEvent    { return CarrierEventMark }
func (f OtherFrame) CarrierEvent() CarrierEvent { return f.Event }

type carrierEnvelope struct {
	Event     CarrierEvent `json:"event"`
	StreamSID string       `json:"streamSid,omitempty"`
	Start     *struct {
		StreamSID        string            `json:"streamSid"`
		CallSID          string            `json:"callSid"`
		AccountSID       string            `json:"accountSid"`
		Tracks           []string          `json:"tracks"`
		MediaFormat      MediaFormat       `json:"mediaFormat"`
		CustomParameters map[string]string `json:"customParameters"`
	} `json:"start,omitempty"`
	Media *struct {
		Track     string `json:"track"`
		Chunk     string `json:"chunk"`
		Timestamp string `json:"timestamp"`
		Payload   string `json:"payload"`
	} `json:"media,omitempty"`
	Stop *struct {
		CallSID string `json:"callSid"`
	} `json:"stop,omitempty"`
	Mark *struct {
		Name string `json:"name"`
	} `json:"mark,omitempty"`
}

// ParseCarrierFrame decodes one carrier text frame.
func ParseCarrierFrame(raw []byte) (CarrierFrame, error) {
	if len(raw) == 0 {
		return nil, errEmptyFrameBytes
	}
	var env carrierEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid carrier envelope: %w", err)
	}
	if env.Event == "" {
		return nil, ErrMissingEvent
	}

	switch env.Event {
	case CarrierEventStart:
		if env.Start == nil || env.Start.StreamSID == "" {
			return nil, ErrInvalidStart
		}
		return StartFrame{
			StreamSID:        env.Start.StreamSID,
			CallSID:          env.Start.CallSID,
			AccountSID:       env.Start.AccountSID,
			Tracks:           env.Start.Tracks,
			MediaFormat:      env.Start.MediaFormat,
			CustomParameters: env.Start.CustomParameters,
		}, nil
	case CarrierEventMedia:
		f := MediaFrame{StreamSID: env.StreamSID}
		if env.Media != nil {
			f.Track = env.Media.Track
			f.Chunk = env.Media.Chunk
			f.Timestamp = env.Media.Timestamp
			f.Payload = env.Media.Payload
		}
		return f, nil
	case CarrierEventStop:
		f := StopFrame{StreamSID: env.StreamSID}
		if env.Stop != nil {
			f.CallSID = env.Stop.CallSID
		}
		return f, nil
	case CarrierEventMark:
		f := MarkFrame{StreamSID: env.StreamSID}
		if env.Mark != nil {
			f.Name = env.Mark.Name
		}
		return f, nil
	default:
		return OtherFrame{Event: env.Event}, nil
	}
}

type MediaPayload struct {
	Payload string `json:"payload"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

// OutboundMedia carries synthesized audio back to the caller.
type OutboundMedia struct {
	Event     CarrierEvent `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     MediaPayload `json:"media"`
}

// OutboundMark asks the carrier to echo a sequencing checkpoint.
type OutboundMark struct {
	Event     CarrierEvent `json:"event"`
	StreamSID string       `json:"streamSid"`
	Mark      MarkPayload  `json:"mark"`
}

func NewOutboundMedia(streamSID, payload string) OutboundMedia {
	return OutboundMedia{
		Event:     CarrierEventMedia,
		StreamSID: streamSID,
		Media:     MediaPayload{Payload: payload},
	}
}

func NewOutboundMark(streamSID, name string) OutboundMark {
	return OutboundMark{
		Event:     CarrierEventMark,
		StreamSID: streamSID,
		Mark:      MarkPayload{Name: name},
	}
}

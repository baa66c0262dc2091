package protocol

import (
	"encoding/json"
	"fmt"
)

// RealtimeType identifies AI realtime event and command variants.
type RealtimeType string

const (
	TypeSessionUpdate     RealtimeType = "session.update"
	TypeInputAudioAppend  RealtimeType = "input_audio_buffer.append"
	TypeResponseCreate    RealtimeType = "response.create"
	TypeSessionCreated    RealtimeType = "session.created"
	TypeSessionUpdated    RealtimeType = "session.updated"
	TypeOutputAudioDelta  RealtimeType = "response.output_audio.delta"
	TypeResponseCompleted RealtimeType = "response.completed"
	TypeResponseDone      RealtimeType = "response.done"
	TypeRateLimitsUpdated RealtimeType = "rate_limits.updated"
	TypeError             RealtimeType = "error"
)

const (
	// AudioFormatPCMU is G.711 mu-law, the carrier's native telephony encoding.
	AudioFormatPCMU = "audio/pcmu"
	// TurnDetectionServerVAD lets the AI endpoint decide when the caller stopped talking.
	TurnDetectionServerVAD = "server_vad"
	ModalityAudio          = "audio"
)

var diagnosticTypes = map[RealtimeType]struct{}{
	TypeSessionCreated:    {},
	TypeSessionUpdated:    {},
	TypeRateLimitsUpdated: {},
	TypeResponseCompleted: {},
	TypeResponseDone:      {},
	TypeError:             {},
}

// IsDiagnostic reports whether events of type t are only logged by the relay.
func IsDiagnostic(t RealtimeType) bool {
	_, ok := diagnosticTypes[t]
	return ok
}

// RealtimeEvent is one decoded AI realtime event. The concrete type is one of
// AudioDelta, ResponseCompleted, ResponseDone, SessionCreated, SessionUpdated,
// RateLimitsUpdated, ErrorEvent or OtherEvent.
type RealtimeEvent interface {
	RealtimeType() RealtimeType
}

type AudioDelta struct {
	ResponseID string
	ItemID     string
	Delta      string
}

type ResponseCompleted struct {
	ResponseID string
}

type ResponseDone struct {
	ResponseID string
	Status     string
}

type SessionCreated struct {
	SessionID string
}

type SessionUpdated struct {
	SessionID string
}

type RateLimit struct {
	Name         string  `json:"name"`
	Limit        int     `json:"limit"`
	Remaining    int     `json:"remaining"`
	ResetSeconds float64 `json:"reset_seconds"`
}

type RateLimitsUpdated struct {
	RateLimits []RateLimit
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Error ErrorDetail
}

// OtherEvent is any event type the relay ignores.
type OtherEvent struct {
	Type RealtimeType
}

func (AudioDelta) RealtimeType() RealtimeType        { return TypeOutputAudioDelta }
func (ResponseCompleted) RealtimeType() RealtimeType { return TypeResponseCompleted }
func (ResponseDone) RealtimeType() RealtimeType      { return TypeResponseDone }
func (SessionCreated) RealtimeType() RealtimeType    { return TypeSessionCreated }
func (SessionUpdated) RealtimeType() RealtimeType    { return TypeSessionUpdated }
func (RateLimitsUpdated) RealtimeType() RealtimeType { return TypeRateLimitsUpdated }
func (ErrorEvent) RealtimeType() RealtimeType        { return TypeError }
func (e OtherEvent) RealtimeType() RealtimeType      { return e.Type }

type realtimeEnvelope struct {
	Type       RealtimeType `json:"type"`
	ResponseID string       `json:"response_id,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Session    *struct {
		ID string `json:"id"`
	} `json:"session,omitempty"`
	Response *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"response,omitempty"`
	RateLimits []RateLimit  `json:"rate_limits,omitempty"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// ParseRealtimeEvent decodes one AI realtime text frame.
func ParseRealtimeEvent(raw []byte) (RealtimeEvent, error) {
	if len(raw) == 0 {
		return nil, errEmptyFrameBytes
	}
	var env realtimeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid realtime envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	switch env.Type {
	case TypeOutputAudioDelta:
		return AudioDelta{ResponseID: env.ResponseID, ItemID: env.ItemID, Delta: env.Delta}, nil
	case TypeResponseCompleted:
		ev := ResponseCompleted{ResponseID: env.ResponseID}
		if ev.ResponseID == "" && env.Response != nil {
			ev.ResponseID = env.Response.ID
		}
		return ev, nil
	case TypeResponseDone:
		ev := ResponseDone{}
		if env.Response != nil {
			ev.ResponseID = env.Response.ID
			ev.Status = env.Response.Status
		}
		return ev, nil
	case TypeSessionCreated:
		ev := SessionCreated{}
		if env.Session != nil {
			ev.SessionID = env.Session.ID
		}
		return ev, nil
	case TypeSessionUpdated:
		ev := SessionUpdated{}
		if env.Session != nil {
			ev.SessionID = env.Session.ID
		}
		return ev, nil
	case TypeRateLimitsUpdated:
		return RateLimitsUpdated{RateLimits: env.RateLimits}, nil
	case TypeError:
		ev := ErrorEvent{}
		if env.Error != nil {
			ev.Error = *env.Error
		}
		return ev, nil
	default:
		return OtherEvent{Type: env.Type}, nil
	}
}

type AudioFormat struct {
	Type string `json:"type"`
}

type TurnDetection struct {
	Type string `json:"type"`
}

type AudioInput struct {
	Format        AudioFormat   `json:"format"`
	TurnDetection TurnDetection `json:"turn_detection"`
}

type AudioOutput struct {
	Format AudioFormat `json:"format"`
	Voice  string      `json:"voice,omitempty"`
}

type SessionAudio struct {
	Input  AudioInput  `json:"input"`
	Output AudioOutput `json:"output"`
}

type SessionConfig struct {
	Type             string       `json:"type"`
	Model            string       `json:"model"`
	Instructions     string       `json:"instructions,omitempty"`
	OutputModalities []string     `json:"output_modalities"`
	Audio            SessionAudio `json:"audio"`
}

// SessionUpdate configures the AI session once, right after it opens.
type SessionUpdate struct {
	Type    RealtimeType  `json:"type"`
	Session SessionConfig `json:"session"`
}

// InputAudioAppend forwards one carrier audio payload to the AI input buffer.
type InputAudioAppend struct {
	Type  RealtimeType `json:"type"`
	Audio string       `json:"audio"`
}

type ResponseOptions struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions,omitempty"`
}

// ResponseCreate asks the AI to speak; used once per call for the greeting.
type ResponseCreate struct {
	Type     RealtimeType    `json:"type"`
	Response ResponseOptions `json:"response"`
}

// NewSessionUpdate builds the configuration command: mu-law in and out so no
// transcoding is needed, and server VAD so the relay never commits input.
func NewSessionUpdate(model, instructions, voice string) SessionUpdate {
	return SessionUpdate{
		Type: TypeSessionUpdate,
		Session: SessionConfig{
			Type:             "realtime",
			Model:            model,
			Instructions:     instructions,
			OutputModalities: []string{ModalityAudio},
			Audio: SessionAudio{
				Input: AudioInput{
					Format:        AudioFormat{Type: AudioFormatPCMU},
					TurnDetection: TurnDetection{Type: TurnDetectionServerVAD},
				},
				Output: AudioOutput{
					Format: AudioFormat{Type: AudioFormatPCMU},
					Voice:  voice,
				},
			},
		},
	}
}

func NewInputAudioAppend(payload string) InputAudioAppend {
	return InputAudioAppend{Type: TypeInputAudioAppend, Audio: payload}
}

func NewResponseCreate(instructions string) ResponseCreate {
	return ResponseCreate{
		Type: TypeResponseCreate,
		Response: ResponseOptions{
			Modalities:   []string{ModalityAudio},
			Instructions: instructions,
		},
	}
}

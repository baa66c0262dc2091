// Package relay bridges one carrier media stream to one AI realtime session.
//
// Each call runs two goroutines: the inbound task reads carrier frames and
// writes AI commands, the outbound task reads AI events and writes carrier
// frames. Each leg therefore has exactly one writer. Audio payloads are copied
// between the two envelopes as opaque strings.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/auntie-care/auntie-voice/internal/calls"
	"github.com/auntie-care/auntie-voice/internal/config"
	"github.com/auntie-care/auntie-voice/internal/observability"
	"github.com/auntie-care/auntie-voice/internal/protocol"
	"github.com/auntie-care/auntie-voice/internal/reliability"
)

const (
	directionToRealtime = "to_realtime"
	directionToCarrier  = "to_carrier"

	sourceCarrier  = "carrier"
	sourceRealtime = "realtime"

	dropNoStream   = "no_stream"
	dropEmptyAudio = "empty_payload"
)

// Options is the immutable per-process configuration every call starts from.
type Options struct {
	Model        string
	Instructions string
	Voice        string
	Greeting     string
	WriteTimeout time.Duration
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Model:        cfg.RealtimeModel,
		Instructions: cfg.SystemMessage,
		Voice:        cfg.RealtimeVoice,
		Greeting:     cfg.GreetingInstructions,
		WriteTimeout: cfg.WriteTimeout,
	}
}

type Relay struct {
	opts    Options
	logger  *zap.Logger
	metrics *observability.Metrics
	calls   *calls.Manager
}

func New(opts Options, logger *zap.Logger, metrics *observability.Metrics, callManager *calls.Manager) *Relay {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Relay{
		opts:    opts,
		logger:  logger.Named("relay"),
		metrics: metrics,
		calls:   callManager,
	}
}

// Serve relays one call until either side ends it, then closes both
// connections. Disconnects are normal termination; the returned error is
// non-nil only when the AI session could not be opened or configured.
func (r *Relay) Serve(ctx context.Context, carrier Conn, dialer Dialer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	call := r.calls.Create(cancel)
	log := r.logger.With(zap.String("call_id", call.ID))
	r.metrics.CallStarted()

	c := &callSession{
		relay:   r,
		id:      call.ID,
		log:     log,
		state:   NewState(),
		carrier: newOnceConn(carrier, sourceCarrier, log),
	}

	dialStart := time.Now()
	ai, err := dialer.Dial(ctx)
	if err != nil {
		c.carrier.Close()
		c.state.Finish(calls.ReasonDialFailed)
		r.finish(c)
		r.metrics.ProviderErrors.WithLabelValues("openai", "dial").Inc()
		return fmt.Errorf("dial realtime: %w", err)
	}
	r.metrics.ObserveDialLatency(time.Since(dialStart))
	c.ai = newOnceConn(ai, sourceRealtime, log)

	stop := context.AfterFunc(ctx, c.closeBoth)
	defer stop()

	update := protocol.NewSessionUpdate(r.opts.Model, r.opts.Instructions, r.opts.Voice)
	if err := c.send(c.ai, directionToRealtime, string(protocol.TypeSessionUpdate), update); err != nil {
		c.closeBoth()
		c.state.Finish(calls.ReasonRealtimeError)
		r.finish(c)
		return fmt.Errorf("configure realtime session: %w", err)
	}

	c.state.SetPhase(calls.PhaseActive)
	_ = r.calls.SetPhase(call.ID, calls.PhaseActive)
	log.Info("call relay started", zap.Duration("dial", time.Since(dialStart)))

	var g errgroup.Group
	g.Go(func() error { return c.inbound(ctx) })
	g.Go(func() error { return c.outbound(ctx) })
	err = g.Wait()

	if ctx.Err() != nil {
		c.state.Finish(calls.ReasonShutdown)
	}
	c.state.SetPhase(calls.PhaseClosing)
	_ = r.calls.SetPhase(call.ID, calls.PhaseClosing)
	c.closeBoth()
	r.finish(c)
	return err
}

func (r *Relay) finish(c *callSession) {
	c.state.SetPhase(calls.PhaseClosed)
	ended, err := r.calls.End(c.id, c.state.Reason())
	if err != nil {
		c.log.Warn("end call", zap.Error(err))
	}
	r.metrics.CallEnded()
	if ended != nil {
		c.log.Info("call relay ended",
			zap.String("reason", ended.EndReason),
			zap.String("stream_sid", ended.StreamSID),
			zap.Int64("frames_in", ended.FramesIn),
			zap.Int64("frames_out", ended.FramesOut),
		)
	}
}

// callSession is the per-call pairing of the two legs and their shared state.
type callSession struct {
	relay   *Relay
	id      string
	log     *zap.Logger
	state   *State
	carrier *onceConn
	ai      *onceConn
}

func (c *callSession) closeBoth() {
	c.ai.Close()
	c.carrier.Close()
}

// inbound consumes carrier frames until stop, disconnect or a failed write to
// the AI leg. It owns teardown of the AI connection.
func (c *callSession) inbound(ctx context.Context) error {
	defer c.ai.Close()
	m := c.relay.metrics
	for {
		_, raw, err := c.carrier.ReadMessage()
		if err != nil {
			c.readEnded(ctx, sourceCarrier, calls.ReasonCarrierClosed, err)
			return nil
		}
		frame, err := protocol.ParseCarrierFrame(raw)
		if err != nil {
			m.MalformedFrames.WithLabelValues(sourceCarrier).Inc()
			c.log.Debug("skip malformed carrier frame", zap.Error(err))
			continue
		}
		_ = c.relay.calls.Touch(c.id, true)

		switch f := frame.(type) {
		case protocol.StartFrame:
			if err := c.handleStart(f); err != nil {
				c.writeFailed(sourceRealtime, calls.ReasonRealtimeWriteFailed, err)
				return nil
			}
		case protocol.MediaFrame:
			if f.Payload == "" {
				m.DroppedFrames.WithLabelValues(dropEmptyAudio).Inc()
				continue
			}
			cmd := protocol.NewInputAudioAppend(f.Payload)
			if err := c.send(c.ai, directionToRealtime, string(protocol.TypeInputAudioAppend), cmd); err != nil {
				c.writeFailed(sourceRealtime, calls.ReasonRealtimeWriteFailed, err)
				return nil
			}
		case protocol.StopFrame:
			c.log.Info("carrier stop received", zap.String("stream_sid", f.StreamSID))
			c.state.Finish(calls.ReasonCarrierStop)
			return nil
		case protocol.MarkFrame:
			c.log.Debug("carrier mark echoed", zap.String("name", f.Name))
		default:
			c.log.Debug("ignore carrier frame", zap.String("event", string(frame.CarrierEvent())))
		}
	}
}

func (c *callSession) handleStart(f protocol.StartFrame) error {
	sid, fresh := c.state.SetStreamID(f.StreamSID)
	if fresh {
		_ = c.relay.calls.BindStream(c.id, f.StreamSID, f.CallSID)
		c.log.Info("carrier stream started",
			zap.String("stream_sid", f.StreamSID),
			zap.String("call_sid", f.CallSID),
			zap.String("encoding", f.MediaFormat.Encoding),
		)
	} else if sid != f.StreamSID {
		c.log.Warn("ignore second stream id", zap.String("stream_sid", sid), zap.String("received", f.StreamSID))
	}

	if !c.state.MarkGreeted() {
		return nil
	}
	greeting := protocol.NewResponseCreate(c.relay.opts.Greeting)
	return c.send(c.ai, directionToRealtime, string(protocol.TypeResponseCreate), greeting)
}

// outbound consumes AI events until the AI leg closes or a write to the
// carrier fails. It closes the carrier connection on exit so the inbound
// task's pending read returns.
func (c *callSession) outbound(ctx context.Context) error {
	defer c.carrier.Close()
	m := c.relay.metrics
	for {
		_, raw, err := c.ai.ReadMessage()
		if err != nil {
			c.readEnded(ctx, sourceRealtime, calls.ReasonRealtimeError, err)
			return nil
		}
		event, err := protocol.ParseRealtimeEvent(raw)
		if err != nil {
			m.MalformedFrames.WithLabelValues(sourceRealtime).Inc()
			c.log.Debug("skip malformed realtime event", zap.Error(err))
			continue
		}
		_ = c.relay.calls.Touch(c.id, false)

		if protocol.IsDiagnostic(event.RealtimeType()) {
			c.logDiagnostic(event)
		}

		switch e := event.(type) {
		case protocol.AudioDelta:
			if e.Delta == "" {
				m.DroppedFrames.WithLabelValues(dropEmptyAudio).Inc()
				continue
			}
			sid, ok := c.state.StreamID()
			if !ok {
				m.DroppedFrames.WithLabelValues(dropNoStream).Inc()
				continue
			}
			if err := c.send(c.carrier, directionToCarrier, string(protocol.CarrierEventMedia), protocol.NewOutboundMedia(sid, e.Delta)); err != nil {
				c.writeFailed(sourceCarrier, calls.ReasonCarrierWriteFailed, err)
				return nil
			}
		case protocol.ResponseCompleted:
			sid, ok := c.state.StreamID()
			if !ok {
				m.DroppedFrames.WithLabelValues(dropNoStream).Inc()
				continue
			}
			if err := c.send(c.carrier, directionToCarrier, string(protocol.CarrierEventMark), protocol.NewOutboundMark(sid, protocol.TurnEndMark)); err != nil {
				c.writeFailed(sourceCarrier, calls.ReasonCarrierWriteFailed, err)
				return nil
			}
		}
	}
}

func (c *callSession) logDiagnostic(event protocol.RealtimeEvent) {
	typ := zap.String("type", string(event.RealtimeType()))
	switch e := event.(type) {
	case protocol.ErrorEvent:
		c.relay.metrics.ProviderErrors.WithLabelValues("openai", e.Error.Code).Inc()
		c.log.Warn("realtime error event", typ,
			zap.String("code", e.Error.Code),
			zap.String("message", e.Error.Message),
			zap.Bool("retryable", reliability.IsRetryableRealtimeErrorCode(e.Error.Code)),
		)
	case protocol.RateLimitsUpdated:
		fields := []zap.Field{typ}
		for _, rl := range e.RateLimits {
			fields = append(fields, zap.Int("remaining_"+rl.Name, rl.Remaining))
		}
		c.log.Info("realtime event", fields...)
	case protocol.SessionCreated:
		c.log.Info("realtime event", typ, zap.String("session_id", e.SessionID))
	case protocol.SessionUpdated:
		c.log.Info("realtime event", typ, zap.String("session_id", e.SessionID))
	case protocol.ResponseCompleted:
		c.log.Info("realtime event", typ, zap.String("response_id", e.ResponseID))
	case protocol.ResponseDone:
		c.log.Info("realtime event", typ, zap.String("response_id", e.ResponseID), zap.String("status", e.Status))
	default:
		c.log.Info("realtime event", typ)
	}
}

func (c *callSession) readEnded(ctx context.Context, leg, reason string, err error) {
	if ctx.Err() != nil {
		c.state.Finish(calls.ReasonShutdown)
		return
	}
	c.state.Finish(reason)
	if isExpectedClose(err) {
		c.log.Debug("connection closed", zap.String("leg", leg), zap.Error(err))
		return
	}
	c.log.Info("connection dropped", zap.String("leg", leg), zap.Error(err))
}

func (c *callSession) writeFailed(leg, reason string, err error) {
	c.state.Finish(reason)
	c.log.Info("write failed", zap.String("leg", leg), zap.Error(err))
}

// send encodes v and writes it as one text frame under the write deadline.
func (c *callSession) send(conn Conn, direction, frameType string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", frameType, err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(c.relay.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write %s: %w", frameType, err)
	}
	c.relay.metrics.RelayedFrames.WithLabelValues(direction, frameType).Inc()
	return nil
}

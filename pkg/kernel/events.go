package kernel

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultEventTopic = "kernel"

type EventType string

const (
	EventTypeFunctionInvoking EventType = "function.invoking"
	EventTypeFunctionInvoked  EventType = "function.invoked"
	EventTypeFunctionFailed   EventType = "function.failed"
)

// InvocationEvent is published around every function call going through
// Kernel.InvokeFunction.
type InvocationEvent struct {
	Type         EventType     `json:"type"`
	InvocationID uuid.UUID     `json:"invocation_id"`
	PluginName   string        `json:"plugin_name"`
	FunctionName string        `json:"function_name"`
	Arguments    Arguments     `json:"arguments,omitempty"`
	Result       string        `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

func NewInvocationEventFromMessage(msg *message.Message) (*InvocationEvent, error) {
	e := &InvocationEvent{}
	if err := json.Unmarshal(msg.Payload, e); err != nil {
		return nil, err
	}
	return e, nil
}

// NewEventPubSub returns an in-process pub/sub suitable for kernel events.
func NewEventPubSub(logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, NewWatermillLogger(logger))
}

// WatermillLogger maps watermill logging onto zerolog.
type WatermillLogger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = (*WatermillLogger)(nil)

func NewWatermillLogger(logger zerolog.Logger) *WatermillLogger {
	return &WatermillLogger{logger: logger}
}

func (w *WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Fields(map[string]interface{}(fields)).Err(err).Msg(msg)
}

func (w *WatermillLogger) Info(msg string, fields watermill.LogFields) {
	// map INFO to DEBUG because watermill is chatty
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w *WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillLogger{logger: w.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}

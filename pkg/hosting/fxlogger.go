package hosting

import (
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx/fxevent"
)

// FxLogger routes fx lifecycle events to zerolog. Everything but errors is
// logged at debug level.
type FxLogger struct {
	logger zerolog.Logger
}

var _ fxevent.Logger = (*FxLogger)(nil)

func NewFxLogger(logger zerolog.Logger) *FxLogger {
	return &FxLogger{logger: logger.With().Str("component", "fx").Logger()}
}

func (l *FxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug().Str("callee", e.FunctionName).Str("caller", e.CallerName).Msg("OnStart hook executing")
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("OnStart hook failed")
			return
		}
		l.logger.Debug().Str("callee", e.FunctionName).Dur("runtime", e.Runtime).Msg("OnStart hook executed")
	case *fxevent.OnStopExecuting:
		l.logger.Debug().Str("callee", e.FunctionName).Str("caller", e.CallerName).Msg("OnStop hook executing")
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("callee", e.FunctionName).Msg("OnStop hook failed")
			return
		}
		l.logger.Debug().Str("callee", e.FunctionName).Dur("runtime", e.Runtime).Msg("OnStop hook executed")
	case *fxevent.Supplied:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("type", e.TypeName).Msg("error encountered while supplying")
			return
		}
		l.logger.Debug().Str("type", e.TypeName).Str("module", e.ModuleName).Msg("supplied")
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("constructor", e.ConstructorName).Msg("error encountered while applying options")
			return
		}
		l.logger.Debug().
			Str("constructor", e.ConstructorName).
			Str("types", strings.Join(e.OutputTypeNames, ", ")).
			Str("module", e.ModuleName).
			Msg("provided")
	case *fxevent.Decorated:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("decorator", e.DecoratorName).Msg("error encountered while applying options")
			return
		}
		l.logger.Debug().Str("decorator", e.DecoratorName).Str("module", e.ModuleName).Msg("decorated")
	case *fxevent.Invoking:
		l.logger.Debug().Str("function", e.FunctionName).Str("module", e.ModuleName).Msg("invoking")
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Str("function", e.FunctionName).Str("stack", e.Trace).Msg("invoke failed")
		}
	case *fxevent.Stopping:
		l.logger.Debug().Str("signal", strings.ToUpper(e.Signal.String())).Msg("received signal")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Msg("stop failed")
		}
	case *fxevent.RollingBack:
		l.logger.Error().Err(e.StartErr).Msg("start failed, rolling back")
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Msg("rollback failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Msg("start failed")
			return
		}
		l.logger.Debug().Msg("started")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.logger.Error().Err(e.Err).Msg("custom logger initialization failed")
			return
		}
		l.logger.Debug().Str("function", e.ConstructorName).Msg("initialized custom fxevent.Logger")
	}
}

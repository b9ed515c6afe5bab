package statetree

import "time"

// EvaluatorLogEvent describes one refinement predicate run. Rejected is set
// when the predicate ran and returned anything but true.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Path     string
	Duration time.Duration
	Rejected bool
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

package similarity

import "log/slog"

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer that writes documents and scores to the
// logger at debug level.
func NewLogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logObserver{logger: logger.With("component", "similarity")}
}

func (o *logObserver) ObserveDocuments(reference string, candidates []string) {
	o.logger.Debug("reference document", "text", reference)
	for i, doc := range candidates {
		o.logger.Debug("candidate document", "job", i+1, "text", doc)
	}
}

func (o *logObserver) ObserveScores(scores []float64) {
	for i, s := range scores {
		o.logger.Debug("similarity score", "job", i+1, "score", s)
	}
}

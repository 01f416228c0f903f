package metric

import "time"

type (
	Labels map[string]string

	Metrics interface {
		With(labels Labels) Metrics
		Increment(key string)
		Duration(key string, duration time.Duration)
	}
)
